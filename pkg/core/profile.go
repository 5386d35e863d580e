package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProfileType discriminates the two kinds of business card in the directory.
type ProfileType string

const (
	ProfileTypeIndividual ProfileType = "individual"
	ProfileTypeCompany    ProfileType = "company"
)

// Valid reports whether t is one of the known profile types.
func (t ProfileType) Valid() bool {
	return t == ProfileTypeIndividual || t == ProfileTypeCompany
}

// SocialLinks maps a platform name (linkedin, twitter, website...) to a URL.
type SocialLinks map[string]string

// Profile is a digital business card owned by a single user account.
//
// Profiles are addressable by (CountryCode, Username). Type decides which of
// the variant fields are meaningful:
//
//   - individual: FirstName, LastName, Address, Bio
//   - company:    CompanyName, CompanyLogo, ContactPerson, BusinessDetails
//
// Optional text fields use the empty string for "absent". Inactive profiles
// (IsActive == false) are never returned by lookups or searches.
type Profile struct {
	ID          uuid.UUID   `json:"id" yaml:"id"`
	Email       string      `json:"email" yaml:"email"`
	Username    string      `json:"username" yaml:"username"`
	Type        ProfileType `json:"profile_type" yaml:"profile_type"`
	CountryCode string      `json:"country_code" yaml:"country_code"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" yaml:"updated_at"`
	IsActive    bool        `json:"is_active" yaml:"is_active"`
	Phone       string      `json:"phone,omitempty" yaml:"phone,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	SocialLinks SocialLinks `json:"social_links,omitempty" yaml:"social_links,omitempty"`

	// Individual fields
	FirstName string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	Bio       string `json:"bio,omitempty" yaml:"bio,omitempty"`

	// Company fields
	CompanyName     string `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	CompanyLogo     string `json:"company_logo,omitempty" yaml:"company_logo,omitempty"`
	ContactPerson   string `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
	BusinessDetails string `json:"business_details,omitempty" yaml:"business_details,omitempty"`
}

var (
	usernamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	countryCodePattern = regexp.MustCompile(`^[a-zA-Z]{2}$`)

	lowerCaser = cases.Lower(language.Und)
)

// IsValidUsername reports whether username is 3-30 characters of letters,
// digits and underscores.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidCountryCode reports whether code looks like a two letter country code.
func IsValidCountryCode(code string) bool {
	return countryCodePattern.MatchString(code)
}

// NormalizeCountry trims and lower-cases a country code. Country codes are
// always stored and compared in lower case.
func NormalizeCountry(code string) string {
	return lowerCaser.String(strings.TrimSpace(code))
}

// ProfilePath returns the canonical relative URL of a profile:
// /{countryCode}/{username}, both lower-cased.
func ProfilePath(countryCode, username string) string {
	return "/" + NormalizeCountry(countryCode) + "/" + lowerCaser.String(username)
}

// Path returns the canonical relative URL of the profile.
func (p *Profile) Path() string {
	return ProfilePath(p.CountryCode, p.Username)
}

// DisplayName returns the human readable name of the profile. Individuals
// use their trimmed first and last name, companies their company name; both
// fall back to the username.
func (p *Profile) DisplayName() string {
	switch p.Type {
	case ProfileTypeCompany:
		if name := strings.TrimSpace(p.CompanyName); name != "" {
			return name
		}
	default:
		if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
			return name
		}
	}
	return p.Username
}

// Validate checks the invariants a profile must satisfy before it is stored.
func (p *Profile) Validate() error {
	if !p.Type.Valid() {
		return &ValidationError{Field: "profile_type", Message: fmt.Sprintf("unknown profile type %q", p.Type)}
	}
	if !IsValidUsername(p.Username) {
		return &ValidationError{Field: "username", Message: "username must be 3-30 letters, digits or underscores"}
	}
	if !IsValidCountryCode(p.CountryCode) {
		return &ValidationError{Field: "country_code", Message: "country code must be two letters"}
	}
	if strings.TrimSpace(p.Email) == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	return nil
}

// Normalize fills generated fields and canonicalizes the addressable parts
// of the profile. It is applied before persisting.
func (p *Profile) Normalize(now time.Time) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CountryCode = NormalizeCountry(p.CountryCode)
	p.Username = strings.TrimSpace(p.Username)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
}
