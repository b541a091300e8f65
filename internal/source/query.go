package source

import (
	"fmt"
	"strings"

	"github.com/ppiankov/marketscout/internal/model"
)

type queryTemplate struct {
	tag     model.SourceTag
	format  string // %s receives the quoted entity name
	recency model.Recency
}

var queryTemplates = []queryTemplate{
	{model.SourceGeneral, "%s latest technical features product updates released last 7 days", model.RecencyWeek},
	{model.SourceGitHub, "%s site:github.com release OR commit OR repository", model.RecencyWeek},
	{model.SourceSocial, "%s site:x.com OR site:twitter.com OR site:reddit.com OR site:news.ycombinator.com", model.RecencyWeek},
	{model.SourceHiring, "%s hiring site:linkedin.com/jobs OR site:greenhouse.io OR site:lever.co", model.RecencyMonth},
	{model.SourceReleases, `%s launch OR announces OR "release notes" OR changelog`, model.RecencyWeek},
}

// BuildQueries derives the fixed set of source queries for an entity,
// in model.SourceOrder. The entity is quoted for exact-phrase matching.
func BuildQueries(entity string) ([]model.SourceQuery, error) {
	name := strings.TrimSpace(entity)
	if name == "" {
		return nil, model.ErrEmptyEntity
	}

	quoted := `"` + strings.ReplaceAll(name, `"`, "") + `"`

	queries := make([]model.SourceQuery, 0, len(queryTemplates))
	for _, tmpl := range queryTemplates {
		queries = append(queries, model.SourceQuery{
			Tag:     tmpl.tag,
			Query:   fmt.Sprintf(tmpl.format, quoted),
			Recency: tmpl.recency,
		})
	}

	return queries, nil
}
