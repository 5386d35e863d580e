package search

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rubiojr/cardex/pkg/core"
)

// SubtitleLength is the number of characters kept from a bio or business
// description before an ellipsis is appended.
const SubtitleLength = 100

// Summary is the display-ready view of a matched profile. ContactPerson is
// only set for company profiles.
type Summary struct {
	ID            uuid.UUID        `json:"id"`
	Username      string           `json:"username"`
	ProfileType   core.ProfileType `json:"profileType"`
	CountryCode   string           `json:"countryCode"`
	DisplayName   string           `json:"displayName"`
	Subtitle      string           `json:"subtitle,omitempty"`
	ContactPerson string           `json:"contactPerson,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	SocialLinks   core.SocialLinks `json:"socialLinks,omitempty"`
	AvatarURL     string           `json:"avatarUrl,omitempty"`
	ProfileURL    string           `json:"profileUrl"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Summarize maps a stored profile to its summary. It is total: every
// profile yields exactly one summary.
func Summarize(p *core.Profile) Summary {
	s := Summary{
		ID:          p.ID,
		Username:    p.Username,
		ProfileType: p.Type,
		CountryCode: p.CountryCode,
		DisplayName: p.DisplayName(),
		Phone:       p.Phone,
		SocialLinks: p.SocialLinks,
		AvatarURL:   p.AvatarURL,
		ProfileURL:  p.Path(),
		CreatedAt:   p.CreatedAt,
	}

	if p.Type == core.ProfileTypeCompany {
		s.Subtitle = Subtitle(p.BusinessDetails)
		s.ContactPerson = p.ContactPerson
	} else {
		s.Subtitle = Subtitle(p.Bio)
	}
	return s
}

// SummarizeAll maps profiles in order.
func SummarizeAll(profiles []core.Profile) []Summary {
	out := make([]Summary, 0, len(profiles))
	for i := range profiles {
		out = append(out, Summarize(&profiles[i]))
	}
	return out
}

// Subtitle returns the first SubtitleLength characters of text, followed by
// "..." when text is longer.
func Subtitle(text string) string {
	if utf8.RuneCountInString(text) <= SubtitleLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:SubtitleLength]) + "..."
}
