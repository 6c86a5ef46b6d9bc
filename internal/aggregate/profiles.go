// Package aggregate folds the author snapshots of a normalized batch into
// one merge patch per username.
package aggregate

import (
	"social_fetcher/internal/domain"
	"social_fetcher/internal/normalize"
)

// Profiles groups every embedded author of the batch by identity and merges
// the mentions of each identity into a single patch. Patches come back in
// order of first sighting. Mentions without any identity are skipped.
func Profiles(records []domain.Record, label string) []domain.ProfilePatch {
	index := make(map[string]int)
	var patches []domain.ProfilePatch

	for _, rec := range records {
		for _, a := range rec.Authors {
			key := a.Key()
			if key == "" {
				continue
			}

			i, seen := index[key]
			if !seen {
				i = len(patches)
				index[key] = i
				patches = append(patches, domain.ProfilePatch{
					Username: key,
					Source:   label,
					PageURL:  normalize.ProfileURL(label, key),
				})
			}

			merge(&patches[i], a)
		}
	}

	return patches
}

func merge(p *domain.ProfilePatch, a domain.Author) {
	p.Items++

	setIf(&p.Name, a.Name)
	setIf(&p.Source, a.Source)
	setIf(&p.ProfileImage, firstNonEmpty(a.ProfileImage, a.Image))
	setIf(&p.PageURL, a.PageURL)
	setIf(&p.Description, a.Description)
	setIf(&p.Headline, a.Headline)
	setIf(&p.About, a.About)
	setIf(&p.ExternalID, firstNonEmpty(a.ID, a.UID))

	replaceIf(&p.Experience, a.Experience)
	replaceIf(&p.Education, a.Education)
	replaceIf(&p.Interest, a.Interest)
	replaceIf(&p.Connection, a.Connection)
	replaceIf(&p.License, a.License)
	replaceIf(&p.Endorsement, a.Endorsement)
	replaceIf(&p.Skill, a.Skill)

	metricIf(&p.Mentions, a.Mentions)
	metricIf(&p.Friends, a.Friends)
	metricIf(&p.Followers, a.Followers)
	metricIf(&p.Shares, a.Shares)
}

// setIf never lets an empty value clobber one that is already set.
func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func replaceIf(dst *[]any, v []any) {
	if len(v) > 0 {
		*dst = v
	}
}

func metricIf(dst **int64, v *int64) {
	if v != nil {
		n := *v
		*dst = &n
	}
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
