package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/outreach-agent/internal/fetch"
	"github.com/jonathan/outreach-agent/internal/llm"
)

const (
	// maxPages bounds how many discovered pages one research pass fetches
	maxPages = 4
	// maxCorpusChars bounds the distillation prompt size
	maxCorpusChars = 12000
	// fallbackSummaryChars bounds the heuristic summary when distillation
	// is unavailable
	fallbackSummaryChars = 600
	// browserTimeout bounds one headless-browser render of a thin page
	browserTimeout = 20 * time.Second
)

// TextGenerator produces structured JSON from a prompt on behalf of a
// tenant. Satisfied by the resilient generation layer.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, tenantID uuid.UUID, prompt string, tier llm.ModelTier) (string, error)
}

// Researcher discovers and distills public information about a company.
type Researcher struct {
	svc *customsearch.Service
	cx  string
	gen TextGenerator
}

// NewResearcher creates a Researcher backed by Google Custom Search. gen may
// be nil, in which case profiles fall back to a heuristic summary.
func NewResearcher(ctx context.Context, apiKey, cx string, gen TextGenerator) (*Researcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Researcher{
		svc: svc,
		cx:  cx,
		gen: gen,
	}, nil
}

// Research builds a best-effort company profile. It never returns an error;
// any failure along the way degrades to a sparser (possibly empty) profile.
func (r *Researcher) Research(ctx context.Context, tenantID uuid.UUID, companyName, website string) *CompanyProfile {
	profile := &CompanyProfile{
		CompanyName: companyName,
		Website:     website,
	}
	if companyName == "" {
		return profile
	}

	seeds := r.discoverSeeds(companyName, website)
	if len(seeds) == 0 {
		return profile
	}

	corpus, fetched := fetchCorpus(ctx, seeds)
	profile.SourceURLs = fetched
	if corpus == "" {
		return profile
	}
	if len(corpus) > maxCorpusChars {
		corpus = corpus[:maxCorpusChars]
	}

	r.distill(ctx, tenantID, corpus, profile)
	return profile
}

// discoverSeeds collects candidate pages: the company website plus a few
// search hits for culture and about pages.
func (r *Researcher) discoverSeeds(companyName, website string) []string {
	var seeds []string
	if website != "" {
		seeds = append(seeds, website)
	}

	queries := []string{
		fmt.Sprintf("%s company about", companyName),
		fmt.Sprintf("%s company values mission culture", companyName),
	}
	for _, q := range queries {
		resp, err := r.svc.Cse.List().Cx(r.cx).Q(q).Num(3).Do()
		if err != nil {
			// Skip failed queries; research is best-effort
			continue
		}
		for _, item := range resp.Items {
			seeds = append(seeds, item.Link)
		}
	}

	// Dedup, preserving order
	seen := make(map[string]bool)
	unique := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if !seen[s] {
			unique = append(unique, s)
			seen[s] = true
		}
	}
	if len(unique) > maxPages {
		unique = unique[:maxPages]
	}
	return unique
}

// fetchCorpus downloads the seed pages concurrently and concatenates their
// main text. Individual page failures are skipped.
func fetchCorpus(ctx context.Context, seeds []string) (string, []string) {
	var mu sync.Mutex
	var sections []string
	var fetched []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPages)

	for _, seed := range seeds {
		g.Go(func() error {
			result, err := fetch.URL(gctx, seed, nil)
			if err != nil {
				return nil // page-level failures never abort research
			}
			text, err := fetch.ExtractMainText(result.HTML, fetch.CompanyPageSelectors())
			if err != nil {
				return nil
			}
			if fetch.NeedsRendering(text) {
				// Thin text usually means a client-rendered page; retry in a
				// headless browser and keep whichever extraction succeeded.
				if html, rerr := fetch.Rendered(gctx, seed, browserTimeout); rerr == nil {
					if rendered, rerr := fetch.ExtractMainText(html, fetch.CompanyPageSelectors()); rerr == nil && rendered != "" {
						text = rendered
					}
				}
			}
			if strings.TrimSpace(text) == "" {
				return nil
			}
			mu.Lock()
			sections = append(sections, fmt.Sprintf("Source: %s\n%s", seed, text))
			fetched = append(fetched, seed)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return strings.Join(sections, "\n\n---\n\n"), fetched
}

// distill asks the generation layer to condense the corpus into profile
// fields, falling back to a raw excerpt when generation is unavailable.
func (r *Researcher) distill(ctx context.Context, tenantID uuid.UUID, corpus string, profile *CompanyProfile) {
	if r.gen == nil {
		profile.Summary = excerpt(corpus)
		return
	}

	prompt := llm.BuildExtractionPrompt(llm.CompanyProfileSchema(), corpus)
	jsonResp, err := r.gen.GenerateJSON(ctx, tenantID, prompt, llm.TierLite)
	if err != nil {
		log.Printf("[research] distillation failed for %s: %v", profile.CompanyName, err)
		profile.Summary = excerpt(corpus)
		return
	}

	var distilled struct {
		Summary        string   `json:"summary"`
		CultureSignals []string `json:"culture_signals"`
		RecentFocus    string   `json:"recent_focus"`
	}
	if err := unmarshalLoose(jsonResp, &distilled); err != nil {
		log.Printf("[research] unusable distillation for %s: %v", profile.CompanyName, err)
		profile.Summary = excerpt(corpus)
		return
	}

	profile.Summary = distilled.Summary
	profile.CultureSignals = distilled.CultureSignals
	profile.RecentFocus = distilled.RecentFocus
}

func unmarshalLoose(jsonText string, v any) error {
	return json.Unmarshal([]byte(llm.CleanJSONBlock(jsonText)), v)
}

func excerpt(corpus string) string {
	corpus = strings.TrimSpace(corpus)
	if len(corpus) <= fallbackSummaryChars {
		return corpus
	}
	return corpus[:fallbackSummaryChars]
}
