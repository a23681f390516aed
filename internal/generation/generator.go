package generation

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/llm"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 2 * time.Second
)

// KeyResolver resolves a tenant's personal generation API key. The second
// return is false when the tenant has none stored.
type KeyResolver interface {
	GenerationKey(ctx context.Context, ownerID uuid.UUID) (string, bool, error)
}

// Generator is the resilient front door to the text-generation provider.
// Every call is paced, guarded by the shared circuit breaker, retried on
// transient failures, and routed through a cached per-tenant client.
type Generator struct {
	resolver  KeyResolver
	sharedKey string
	llmConfig *llm.Config
	breaker   *CircuitBreaker
	pacer     *Pacer

	maxAttempts int
	baseBackoff time.Duration

	mu      sync.Mutex
	clients map[uuid.UUID]llm.Client

	// injection points for tests
	newClient func(ctx context.Context, config *llm.Config, apiKey string) (llm.Client, error)
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewGenerator creates a Generator. sharedKey is the process-wide fallback
// API key for tenants without a personal key; it may be empty, in which case
// such tenants fail with InvalidCredentialError.
func NewGenerator(resolver KeyResolver, sharedKey string, config *llm.Config, breaker *CircuitBreaker, pacer *Pacer) *Generator {
	if config == nil {
		config = llm.DefaultConfig()
	}
	return &Generator{
		resolver:    resolver,
		sharedKey:   sharedKey,
		llmConfig:   config,
		breaker:     breaker,
		pacer:       pacer,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		clients:     make(map[uuid.UUID]llm.Client),
		newClient:   llm.NewClient,
		sleep:       sleepCtx,
	}
}

// Generate produces free-form text on behalf of a tenant.
func (g *Generator) Generate(ctx context.Context, tenantID uuid.UUID, prompt string, tier llm.ModelTier) (string, error) {
	return g.call(ctx, tenantID, func(ctx context.Context, client llm.Client) (string, error) {
		return client.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON produces structured JSON on behalf of a tenant.
func (g *Generator) GenerateJSON(ctx context.Context, tenantID uuid.UUID, prompt string, tier llm.ModelTier) (string, error) {
	return g.call(ctx, tenantID, func(ctx context.Context, client llm.Client) (string, error) {
		return client.GenerateJSON(ctx, prompt, tier)
	})
}

// Invalidate drops the tenant's cached client so the next call re-resolves
// credentials. Called when a tenant updates their stored API key.
func (g *Generator) Invalidate(tenantID uuid.UUID) {
	g.mu.Lock()
	client, ok := g.clients[tenantID]
	delete(g.clients, tenantID)
	g.mu.Unlock()

	if ok {
		if err := client.Close(); err != nil {
			log.Printf("[generation] failed to close client for tenant %s: %v", tenantID, err)
		}
	}
}

// Close releases all cached provider clients.
func (g *Generator) Close() {
	g.mu.Lock()
	clients := g.clients
	g.clients = make(map[uuid.UUID]llm.Client)
	g.mu.Unlock()

	for id, client := range clients {
		if err := client.Close(); err != nil {
			log.Printf("[generation] failed to close client for tenant %s: %v", id, err)
		}
	}
}

// call runs one provider operation through the full resilience stack. The
// breaker counts one failure per call that ends in a retryable error after
// the retry budget, or immediately for non-retryable provider errors.
func (g *Generator) call(ctx context.Context, tenantID uuid.UUID, op func(ctx context.Context, client llm.Client) (string, error)) (string, error) {
	if g.breaker != nil {
		if err := g.breaker.Allow(); err != nil {
			return "", err
		}
	}

	client, err := g.clientFor(ctx, tenantID)
	if err != nil {
		// Credential problems are the caller's to fix; they say nothing
		// about provider health, so the breaker does not count them.
		if g.breaker != nil {
			g.breaker.Release()
		}
		return "", err
	}

	var lastErr error
	var lastKind failureKind
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if g.pacer != nil {
			if err := g.pacer.Wait(ctx); err != nil {
				if g.breaker != nil {
					g.breaker.Release()
				}
				return "", fmt.Errorf("failed waiting for generation slot: %w", err)
			}
		}

		result, err := op(ctx, client)
		if err == nil {
			if g.breaker != nil {
				g.breaker.RecordSuccess()
			}
			return result, nil
		}
		if ctx.Err() != nil {
			if g.breaker != nil {
				g.breaker.Release()
			}
			return "", ctx.Err()
		}

		lastErr = err
		lastKind = classify(err)
		if !lastKind.retryable() {
			break
		}
		if attempt < g.maxAttempts {
			backoff := g.backoff(attempt)
			log.Printf("[generation] attempt %d/%d failed for tenant %s, retrying in %s: %v",
				attempt, g.maxAttempts, tenantID, backoff.Round(time.Millisecond), err)
			if err := g.sleep(ctx, backoff); err != nil {
				if g.breaker != nil {
					g.breaker.Release()
				}
				return "", err
			}
		}
	}

	if g.breaker != nil {
		g.breaker.RecordFailure()
	}
	if lastKind == kindBadCredential {
		// A rejected key means the cached client is useless; drop it so a
		// corrected key takes effect on the next call.
		g.Invalidate(tenantID)
	}
	return "", surface(lastKind, g.maxAttempts, lastErr)
}

// backoff returns the exponential backoff for a 1-based attempt number with
// up to 50% jitter.
func (g *Generator) backoff(attempt int) time.Duration {
	base := g.baseBackoff << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base + jitter
}

// clientFor returns the cached client for a tenant, creating one from the
// tenant's personal key or the shared fallback key.
func (g *Generator) clientFor(ctx context.Context, tenantID uuid.UUID) (llm.Client, error) {
	g.mu.Lock()
	if client, ok := g.clients[tenantID]; ok {
		g.mu.Unlock()
		return client, nil
	}
	g.mu.Unlock()

	apiKey := g.sharedKey
	if g.resolver != nil {
		key, ok, err := g.resolver.GenerationKey(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve generation key for tenant %s: %w", tenantID, err)
		}
		if ok {
			apiKey = key
		}
	}
	if apiKey == "" {
		return nil, &InvalidCredentialError{Cause: fmt.Errorf("no generation key for tenant %s and no shared key configured", tenantID)}
	}

	client, err := g.newClient(ctx, g.llmConfig, apiKey)
	if err != nil {
		return nil, &InvalidCredentialError{Cause: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.clients[tenantID]; ok {
		// Lost the race; keep the first client
		_ = client.Close()
		return existing, nil
	}
	g.clients[tenantID] = client
	return client, nil
}
