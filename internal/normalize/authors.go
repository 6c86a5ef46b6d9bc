package normalize

import "social_fetcher/internal/domain"

var authorKnownKeys = map[string]struct{}{
	"username": {}, "handle": {}, "name": {}, "id": {}, "uid": {},
	"source": {}, "profileImage": {}, "image": {}, "pageUrl": {},
	"description": {}, "headline": {}, "about": {},
	"mentions": {}, "friends": {}, "followers": {}, "shares": {},
	"experience": {}, "education": {}, "interest": {}, "connection": {},
	"license": {}, "endorsement": {}, "skill": {},
}

func authors(v any) []domain.Author {
	var out []domain.Author
	for _, u := range list(v) {
		m, ok := u.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Author(m))
	}
	return out
}

// Author types an embedded user snapshot, keeping unknown keys in Extra.
func Author(m map[string]any) domain.Author {
	a := domain.Author{
		Username:     text(m["username"]),
		Handle:       text(m["handle"]),
		Name:         text(m["name"]),
		ID:           text(m["id"]),
		UID:          text(m["uid"]),
		Source:       text(m["source"]),
		ProfileImage: text(m["profileImage"]),
		Image:        text(m["image"]),
		PageURL:      text(m["pageUrl"]),
		Description:  text(m["description"]),
		Headline:     text(m["headline"]),
		About:        text(m["about"]),
		Mentions:     optionalCount(m["mentions"]),
		Friends:      optionalCount(m["friends"]),
		Followers:    optionalCount(m["followers"]),
		Shares:       optionalCount(m["shares"]),
		Experience:   listOnly(m["experience"]),
		Education:    listOnly(m["education"]),
		Interest:     listOnly(m["interest"]),
		Connection:   listOnly(m["connection"]),
		License:      listOnly(m["license"]),
		Endorsement:  listOnly(m["endorsement"]),
		Skill:        listOnly(m["skill"]),
	}
	for k, v := range m {
		if _, known := authorKnownKeys[k]; known {
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[k] = v
	}
	return a
}
