// Package jobs defines core types shared across subsystems: postings,
// classification results, scrape requests, and the capability interfaces
// implemented by adapters, stores, and clients.
package jobs

import (
	"strings"
)

// Posting is one normalized raw job listing produced by a source adapter.
// Title and URL are always non-empty; adapters drop rows missing either.
type Posting struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	URL          string `json:"url"`
	Source       string `json:"source"`
	Description  string `json:"description,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	ContractType string `json:"contractType,omitempty"`
	SalaryRange  string `json:"salaryRange,omitempty"`
	IsEasyApply  bool   `json:"isEasyApply"`
}

// ClassifiedPosting is a Posting plus the AI-assigned evaluation.
type ClassifiedPosting struct {
	Posting
	Score         int      `json:"score"`
	Category      Category `json:"category"`
	Reasoning     string   `json:"reasoning"`
	KeyHighlights []string `json:"keyHighlights,omitempty"`
}

// Evaluation is the raw output of one external scoring call.
type Evaluation struct {
	Score         int      `json:"score"`
	Category      Category `json:"category"`
	Reasoning     string   `json:"reasoning"`
	ContractType  string   `json:"contractType,omitempty"`
	SalaryRange   string   `json:"salaryRange,omitempty"`
	KeyHighlights []string `json:"keyHighlights,omitempty"`
}

// SourceFull selects every registered adapter (fan-out mode).
const SourceFull = "full"

// ScrapeRequest captures the query parameters for one scrape run. It is
// constructed per user action and consumed once; only its effects persist.
type ScrapeRequest struct {
	Source        string `json:"source"`
	Keywords      string `json:"keywords"`
	Location      string `json:"location"`
	MaxPages      int    `json:"maxPages"`
	Radius        string `json:"radius,omitempty"`
	ContractType  string `json:"contractType,omitempty"`
	Remote        string `json:"remote,omitempty"`
	MinSalary     string `json:"minSalary,omitempty"`
	MaxSalary     string `json:"maxSalary,omitempty"`
	Sector        string `json:"sector,omitempty"`
	JobFunction   string `json:"jobFunction,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
	SalaryType    string `json:"salaryType,omitempty"`
}

// Query derives the search string: explicit keywords win, otherwise the
// sector and job function are combined, with a generic fallback so a bare
// request still returns something.
func (r ScrapeRequest) Query() string {
	if q := strings.TrimSpace(r.Keywords); q != "" {
		return q
	}
	q := strings.TrimSpace(strings.TrimSpace(r.Sector) + " " + strings.TrimSpace(r.JobFunction))
	if q != "" {
		return q
	}
	return "Emploi"
}

// IsFanOut reports whether the request targets all adapters.
func (r ScrapeRequest) IsFanOut() bool {
	return r.Source == SourceFull
}

// BoardSnapshot is an immutable view of the categorized board, keyed by
// category with entries ordered newest first.
type BoardSnapshot map[Category][]ClassifiedPosting

// Settings is the persisted user configuration consumed by scheduled runs
// and the classification pipeline. Criteria is an opaque text blob produced
// by an external CV analysis step.
type Settings struct {
	Sources    []string      `json:"sources"`
	Schedule   string        `json:"schedule"`
	Criteria   string        `json:"criteria"`
	AIProvider string        `json:"aiProvider"`
	BackendURL string        `json:"backendUrl"`
	Defaults   ScrapeRequest `json:"defaults"`
}

// Schedule values accepted in Settings.
const (
	ScheduleManual = "manual"
	ScheduleDaily  = "daily"
	ScheduleWeekly = "weekly"
)
