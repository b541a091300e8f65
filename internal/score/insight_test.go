package score

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/marketscout/internal/model"
)

func features(sources ...model.SourceTag) []model.Feature {
	out := make([]model.Feature, 0, len(sources))
	for i, src := range sources {
		out = append(out, model.Feature{Title: fmt.Sprintf("feature %d", i), Source: src})
	}
	return out
}

func TestEntityHash(t *testing.T) {
	tests := []struct {
		name string
		want int64
	}{
		{"Acme", 2988346},
		{"acme", 2988346},
		{"ACME", 2988346},
		{"Globex", 1243020245},
		{"Microsoft", 94228242},           // negative before abs
		{"Pied Piper", 1829787972},        // negative before abs
		{"Stark Industries", 515286307},   // wraps past 32 bits
		{"Umbrella Corporation", 776457428},
		{"😀", 1772899}, // surrogate pair hashed as two units
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntityHash(tt.name))
		})
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	input := features(model.SourceGeneral, model.SourceGitHub, model.SourceHiring)

	first := Synthesize("Initech", input)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Synthesize("Initech", input))
	}

	// SWOT depends only on the name, not on the evidence
	other := Synthesize("initech", features(model.SourceSocial))
	assert.Equal(t, first.SWOT, other.SWOT)
}

func TestSynthesize_KnownValues(t *testing.T) {
	insight := Synthesize("Acme", features(model.SourceGitHub))

	// 60 + 2988346%35 (11) + 5
	assert.Equal(t, 76, insight.Sentiment)
	assert.Equal(t, model.StatusStable, insight.Status)
	assert.Equal(t, model.VelocitySteady, insight.Velocity)
	assert.Equal(t, model.Signals{GitHub: true}, insight.Signals)

	// 2988346 % 5 == 1
	assert.Equal(t, DefaultPools.Strength[1], insight.SWOT.Strength)
	assert.Equal(t, DefaultPools.Weakness[1], insight.SWOT.Weakness)
	assert.Equal(t, DefaultPools.Opportunity[1], insight.SWOT.Opportunity)
	assert.Equal(t, DefaultPools.Threat[1], insight.SWOT.Threat)
}

func TestSynthesize_ClampAndStatus(t *testing.T) {
	tests := []struct {
		name          string
		entity        string
		sources       []model.SourceTag
		wantSentiment int
		wantStatus    model.Status
	}{
		// 60 + 32 = 92, bullish on the base score alone
		{"bullish without signals", "Stark Industries", []model.SourceTag{model.SourceGeneral}, 92, model.StatusBullish},
		// 92 + 5 + 10 = 107, clamped
		{"clamped to 100", "Stark Industries", []model.SourceTag{model.SourceGitHub, model.SourceReleases}, 100, model.StatusBullish},
		// 60 + 5 + 10 = 75
		{"stable with releases", "Globex", []model.SourceTag{model.SourceReleases}, 75, model.StatusStable},
		// 60 + 18 + 5 + 10 = 93
		{"signals push over threshold", "Initech", []model.SourceTag{model.SourceGitHub, model.SourceReleases}, 93, model.StatusBullish},
		// 60 + 18 = 78, raw exactly at or below 85 stays stable
		{"stable", "Initech", []model.SourceTag{model.SourceSocial}, 78, model.StatusStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insight := Synthesize(tt.entity, features(tt.sources...))
			assert.Equal(t, tt.wantSentiment, insight.Sentiment)
			assert.Equal(t, tt.wantStatus, insight.Status)
		})
	}
}

func TestSynthesize_SentimentAlwaysInRange(t *testing.T) {
	combos := [][]model.SourceTag{
		{model.SourceGeneral},
		{model.SourceGitHub},
		{model.SourceReleases},
		{model.SourceGitHub, model.SourceReleases, model.SourceHiring},
	}

	for i := 0; i < 500; i++ {
		name := fmt.Sprintf("Entity %d with a longer name to overflow %d", i, i*7919)
		for _, combo := range combos {
			insight := Synthesize(name, features(combo...))
			require.GreaterOrEqual(t, insight.Sentiment, 0)
			require.LessOrEqual(t, insight.Sentiment, 100)

			raw := RawSentiment(EntityHash(name), DetectSignals(features(combo...)))
			assert.Equal(t, raw > 85, insight.Status == model.StatusBullish)
		}
	}
}

func TestSynthesize_Velocity(t *testing.T) {
	tests := []struct {
		name    string
		sources []model.SourceTag
		want    model.Velocity
	}{
		{"few features", []model.SourceTag{model.SourceGeneral, model.SourceSocial}, model.VelocitySteady},
		// 6 + 0 = 6
		{"six plain", []model.SourceTag{model.SourceGeneral, model.SourceGeneral, model.SourceSocial, model.SourceSocial, model.SourceHiring, model.SourceHiring}, model.VelocitySteady},
		// 3 + 3 + 2 = 8
		{"github and releases", []model.SourceTag{model.SourceGeneral, model.SourceGitHub, model.SourceReleases}, model.VelocityHigh},
		// 2 + 3 + 2 = 7, not above threshold
		{"exactly seven", []model.SourceTag{model.SourceGitHub, model.SourceReleases}, model.VelocitySteady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Synthesize("Acme", features(tt.sources...)).Velocity)
		})
	}
}

func TestDetectSignals(t *testing.T) {
	signals := DetectSignals(features(model.SourceHiring, model.SourceGeneral))
	assert.Equal(t, model.Signals{Hiring: true}, signals)

	assert.Equal(t, model.Signals{}, DetectSignals(nil))
}
