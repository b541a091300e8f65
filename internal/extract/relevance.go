package extract

import (
	"net/url"
	"strings"

	"github.com/ppiankov/marketscout/internal/model"
)

// MaxFeatures caps the number of features kept per brief
const MaxFeatures = 6

// dateFallbacks label results the provider returned without a date
var dateFallbacks = map[model.SourceTag]string{
	model.SourceGeneral:  "Just now",
	model.SourceGitHub:   "Recent activity",
	model.SourceSocial:   "Trending",
	model.SourceHiring:   "Open role",
	model.SourceReleases: "Recently announced",
}

const siteFallback = "Source"

// FilterFeatures keeps results whose title or snippet mentions the entity
// (case-insensitive literal match), walking sources in model.SourceOrder.
// GitHub features are moved after all others and the list is capped at
// MaxFeatures.
func FilterFeatures(entity string, results map[model.SourceTag][]model.RawResultItem) []model.Feature {
	needle := strings.ToLower(strings.TrimSpace(entity))
	if needle == "" {
		return []model.Feature{}
	}

	var primary, github []model.Feature
	for _, tag := range model.SourceOrder {
		for _, item := range results[tag] {
			if !Mentions(item.Title+" "+item.Snippet, needle) {
				continue
			}

			feature := toFeature(tag, item)
			if tag == model.SourceGitHub {
				github = append(github, feature)
			} else {
				primary = append(primary, feature)
			}
		}
	}

	features := append(primary, github...)
	if len(features) > MaxFeatures {
		features = features[:MaxFeatures]
	}
	if features == nil {
		features = []model.Feature{}
	}

	return features
}

// Mentions reports whether text contains the entity, ignoring case
func Mentions(text, entity string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(entity))
}

func toFeature(tag model.SourceTag, item model.RawResultItem) model.Feature {
	date := item.Date
	if date == "" {
		date = dateFallbacks[tag]
	}

	return model.Feature{
		Title:       item.Title,
		Description: item.Snippet,
		Date:        date,
		Source:      tag,
		URL:         item.Link,
		Site:        SiteFromLink(item.Link),
	}
}

// SiteFromLink returns the host of link, or "Source" when there is none
func SiteFromLink(link string) string {
	if link == "" {
		return siteFallback
	}

	parsed, err := url.Parse(link)
	if err != nil || parsed.Hostname() == "" {
		return siteFallback
	}

	return parsed.Hostname()
}
