package render

import (
	"html/template"
	"strings"

	"github.com/a-h/templ"
	"github.com/rubiojr/cardex/pkg/core"
)

// detail is one labelled line of a profile card. Href is either a string,
// which the template sanitizes, or a template.URL built from a fixed scheme.
type detail struct {
	Label string
	Value string
	Href  any
}

type profileView struct {
	Profile  *core.Profile
	Avatar   string
	About    string
	Details  []detail
	VCardURL string
	ShareURL string
}

// ProfilePage renders the public business card of p. shareURL is the
// absolute link shown for copying.
func ProfilePage(p *core.Profile, shareURL string) templ.Component {
	v := profileView{
		Profile:  p,
		Avatar:   p.AvatarURL,
		About:    p.Bio,
		VCardURL: "/api/profiles" + p.Path() + "/vcard",
		ShareURL: shareURL,
	}
	if p.Type == core.ProfileTypeCompany {
		if p.CompanyLogo != "" {
			v.Avatar = p.CompanyLogo
		}
		v.About = p.BusinessDetails
		if p.ContactPerson != "" {
			v.Details = append(v.Details, detail{Label: "Contact person", Value: p.ContactPerson})
		}
	}
	if p.Email != "" {
		v.Details = append(v.Details, detail{Label: "Email", Value: p.Email, Href: "mailto:" + p.Email})
	}
	if p.Phone != "" {
		v.Details = append(v.Details, detail{Label: "Phone", Value: p.Phone, Href: telURL(p.Phone)})
	}
	if p.Type == core.ProfileTypeIndividual && p.Address != "" {
		v.Details = append(v.Details, detail{Label: "Address", Value: p.Address})
	}
	for _, key := range sortedKeys(p.SocialLinks) {
		v.Details = append(v.Details, detail{Label: PlatformName(key), Value: p.SocialLinks[key], Href: p.SocialLinks[key]})
	}
	return templ.FromGoHTML(profileTemplate, v)
}

// telURL keeps the digits and a leading plus of phone. html/template only
// trusts http, https and mailto links, so the tel: scheme is marked safe
// here after filtering.
func telURL(phone string) template.URL {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return template.URL("tel:" + b.String())
}

// NotFoundPage renders the page shown for unknown or inactive profiles.
func NotFoundPage(path string) templ.Component {
	return templ.FromGoHTML(notFoundTemplate, path)
}
