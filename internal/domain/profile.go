package domain

// Author is an author/user snapshot embedded in an upstream record.
// Known attributes are typed; everything else lands in Extra.
type Author struct {
	Username     string
	Handle       string
	Name         string
	ID           string
	UID          string
	Source       string
	ProfileImage string
	Image        string
	PageURL      string
	Description  string
	Headline     string
	About        string

	Mentions  *int64
	Friends   *int64
	Followers *int64
	Shares    *int64

	Experience  []any
	Education   []any
	Interest    []any
	Connection  []any
	License     []any
	Endorsement []any
	Skill       []any

	Extra map[string]any
}

// Key is the identity the author is aggregated under.
func (a Author) Key() string {
	for _, v := range []string{a.Username, a.Handle, a.Name, a.ID} {
		if v != "" {
			return v
		}
	}
	return ""
}

// ProfilePatch is the merged view of every mention of one username in a batch.
// Empty strings and nil slices/pointers mean "leave the stored value alone".
type ProfilePatch struct {
	Username     string
	Name         string
	Source       string
	ProfileImage string
	PageURL      string
	Description  string
	Headline     string
	About        string
	ExternalID   string

	Mentions  *int64
	Friends   *int64
	Followers *int64
	Shares    *int64

	Experience  []any
	Education   []any
	Interest    []any
	Connection  []any
	License     []any
	Endorsement []any
	Skill       []any

	// Items is the number of mentions of the username in the batch.
	Items int
}
