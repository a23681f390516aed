// Package research gathers a best-effort company profile from public web
// sources. Research never fails a campaign: every error path degrades to an
// empty profile.
package research

// CompanyProfile is the distilled research output used to personalize a
// generated email. All fields may be empty.
type CompanyProfile struct {
	CompanyName    string   `json:"company_name"`
	Website        string   `json:"website,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	CultureSignals []string `json:"culture_signals,omitempty"`
	RecentFocus    string   `json:"recent_focus,omitempty"`
	SourceURLs     []string `json:"source_urls,omitempty"`
}

// Empty reports whether research produced nothing usable
func (p *CompanyProfile) Empty() bool {
	return p.Summary == "" && len(p.CultureSignals) == 0 && p.RecentFocus == ""
}
