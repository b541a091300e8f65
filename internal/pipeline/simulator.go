package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ppiankov/marketscout/internal/model"
)

const (
	simulatedFeatureCount = 2
	simulatedSite         = "Industry Insight"
	simulatedURL          = "#"
)

type narrative struct {
	title  string
	format string // %s receives the entity name
}

var narratives = []narrative{
	{
		title:  "Enterprise AI Modernization",
		format: "Launched a new suite of GenAI tools specifically tailored for %s's core service offerings, focusing on automated workflow optimization.",
	},
	{
		title:  "Strategic Cloud Partnership",
		format: "%s announced a multi-year collaboration to expand their global cloud footprint and enhance edge computing capabilities.",
	},
	{
		title:  "Cybersecurity Enhancement",
		format: "Integrated a new zero-trust security architecture across %s's internal and client-facing infrastructure.",
	},
}

// Simulator produces demo features when no search provider is configured
type Simulator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSimulator creates a simulator. Seed 0 draws a random seed.
func NewSimulator(seed uint64, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{
		faker: gofakeit.New(seed),
		now:   now,
	}
}

// Features picks two distinct narratives for entity
func (s *Simulator) Features(entity string) []model.Feature {
	s.mu.Lock()
	first := s.faker.Number(0, len(narratives)-1)
	second := s.faker.Number(0, len(narratives)-2)
	if second >= first {
		second++
	}
	ages := []int{s.faker.Number(0, 6), s.faker.Number(0, 6)}
	s.mu.Unlock()

	features := make([]model.Feature, 0, simulatedFeatureCount)
	for i, idx := range []int{first, second} {
		n := narratives[idx]
		features = append(features, model.Feature{
			Title:       n.title,
			Description: fmt.Sprintf(n.format, entity),
			Date:        s.now().AddDate(0, 0, -ages[i]).Format("Jan 2, 2006"),
			Source:      model.SourceGeneral,
			URL:         simulatedURL,
			Site:        simulatedSite,
		})
	}

	return features
}
