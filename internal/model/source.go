package model

import "errors"

// ErrEmptyEntity is returned when an entity name is empty or whitespace-only
var ErrEmptyEntity = errors.New("entity name is empty")

// SourceTag names one of the fixed specialized query categories
type SourceTag string

const (
	SourceGeneral  SourceTag = "GENERAL"  // Broad product/feature news
	SourceGitHub   SourceTag = "GITHUB"   // Code-hosting activity
	SourceSocial   SourceTag = "SOCIAL"   // Social chatter
	SourceHiring   SourceTag = "HIRING"   // Job-board postings
	SourceReleases SourceTag = "RELEASES" // Launch and release announcements
)

// SourceOrder is the fixed order sources are queried and concatenated in
var SourceOrder = []SourceTag{
	SourceGeneral,
	SourceGitHub,
	SourceSocial,
	SourceHiring,
	SourceReleases,
}

// Recency is the recency window applied to a source query
type Recency string

const (
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
)

// Token returns the search provider's time-based filter token
func (r Recency) Token() string {
	switch r {
	case RecencyMonth:
		return "qdr:m"
	default:
		return "qdr:w"
	}
}

// SourceQuery is one specialized search query derived from an entity name
type SourceQuery struct {
	Tag     SourceTag `json:"source"`
	Query   string    `json:"query"`
	Recency Recency   `json:"recency"`
}

// RawResultItem is one organic result as returned by the search provider
type RawResultItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Date    string `json:"date,omitempty"`
}
