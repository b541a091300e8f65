package model

import "time"

// Report is the rendered result of one scout invocation
type Report struct {
	Query       string    `json:"query"`        // Entity list as supplied by the caller
	GeneratedAt time.Time `json:"generated_at"` // When the invocation finished
	Simulated   bool      `json:"simulated"`    // Demo data instead of live search
	Briefs      []Brief   `json:"briefs"`       // One per entity, in input order
	Alerts      []Alert   `json:"alerts"`       // Raised by the alert analyzer
	Notified    *bool     `json:"notified,omitempty"`
}

// Stats summarizes a report's briefs
type Stats struct {
	Entities int `json:"entities"`
	Insights int `json:"insights"`
	Errors   int `json:"errors"`
	Features int `json:"features"`
}

// Stats counts insight and error briefs
func (r *Report) Stats() Stats {
	s := Stats{Entities: len(r.Briefs)}
	for _, b := range r.Briefs {
		if b.HasInsight() {
			s.Insights++
		} else {
			s.Errors++
		}
		s.Features += len(b.Features)
	}
	return s
}
