package score

import (
	"strings"
	"unicode/utf16"

	"github.com/ppiankov/marketscout/internal/model"
)

const (
	baseSentiment     = 60
	sentimentSpread   = 35
	githubBoost       = 5
	releasesBoost     = 10
	bullishThreshold  = 85
	velocityThreshold = 7
)

// Pools holds the candidate SWOT sentences, one ordered list per category
type Pools struct {
	Strength    []string
	Weakness    []string
	Opportunity []string
	Threat      []string
}

// DefaultPools are the built-in SWOT sentences
var DefaultPools = Pools{
	Strength: []string{
		"Consistent shipping cadence keeps the product surface fresh.",
		"Strong developer mindshare around its core platform.",
		"Deep integration ecosystem raises switching costs for customers.",
		"Clear technical differentiation in its flagship offering.",
		"Healthy community engagement amplifies every launch.",
	},
	Weakness: []string{
		"Messaging is spread across too many product lines.",
		"Documentation trails the pace of feature releases.",
		"Pricing changes have created friction with smaller accounts.",
		"Heavy reliance on a single flagship product.",
		"Enterprise onboarding remains slow and services-heavy.",
	},
	Opportunity: []string{
		"Expanding AI-assisted workflows into adjacent verticals.",
		"Mid-market buyers are underserved by current offerings.",
		"Partnership channels could accelerate international reach.",
		"Open-source momentum can be converted into paid adoption.",
		"Consolidation in the category leaves room to acquire talent.",
	},
	Threat: []string{
		"Well-funded challengers are undercutting on price.",
		"Platform incumbents are bundling comparable features for free.",
		"Regulatory scrutiny on data handling is increasing.",
		"Key engineering talent is being recruited away by rivals.",
		"Rapid commoditization of the core feature set.",
	},
}

// Synthesizer derives a tactical insight from filtered features
type Synthesizer struct {
	pools Pools
}

// NewSynthesizer creates a synthesizer using DefaultPools
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{pools: DefaultPools}
}

// Synthesize runs the default synthesizer
func Synthesize(entity string, features []model.Feature) model.Insight {
	return NewSynthesizer().Synthesize(entity, features)
}

// Synthesize computes the insight for entity. The result depends only on
// the entity name and the feature sources and count.
func (s *Synthesizer) Synthesize(entity string, features []model.Feature) model.Insight {
	hash := EntityHash(entity)
	signals := DetectSignals(features)

	raw := RawSentiment(hash, signals)

	status := model.StatusStable
	if raw > bullishThreshold {
		status = model.StatusBullish
	}

	return model.Insight{
		Sentiment: clampSentiment(raw),
		Status:    status,
		SWOT: model.SWOT{
			Strength:    pick(s.pools.Strength, hash),
			Weakness:    pick(s.pools.Weakness, hash),
			Opportunity: pick(s.pools.Opportunity, hash),
			Threat:      pick(s.pools.Threat, hash),
		},
		Velocity: classifyVelocity(len(features), signals),
		Signals:  signals,
	}
}

// EntityHash is the 32-bit rolling hash (h = h*31 + unit, wrapping) over the
// UTF-16 units of the lowercased name, returned as its absolute value
func EntityHash(name string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(strings.ToLower(name))) {
		h = h*31 + int32(unit)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return abs
}

// DetectSignals reports which activity sources are present among features
func DetectSignals(features []model.Feature) model.Signals {
	var signals model.Signals
	for _, f := range features {
		switch f.Source {
		case model.SourceGitHub:
			signals.GitHub = true
		case model.SourceHiring:
			signals.Hiring = true
		case model.SourceReleases:
			signals.Releases = true
		}
	}
	return signals
}

// RawSentiment is the pre-clamp sentiment score
func RawSentiment(hash int64, signals model.Signals) int {
	raw := baseSentiment + int(hash%sentimentSpread)
	if signals.GitHub {
		raw += githubBoost
	}
	if signals.Releases {
		raw += releasesBoost
	}
	return raw
}

func clampSentiment(raw int) int {
	switch {
	case raw > 100:
		return 100
	case raw < 0:
		return 0
	default:
		return raw
	}
}

func classifyVelocity(count int, signals model.Signals) model.Velocity {
	momentum := count
	if signals.GitHub {
		momentum += 3
	}
	if signals.Releases {
		momentum += 2
	}
	if momentum > velocityThreshold {
		return model.VelocityHigh
	}
	return model.VelocitySteady
}

func pick(pool []string, hash int64) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[hash%int64(len(pool))]
}
