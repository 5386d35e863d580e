package core

import (
	"strings"
)

// VCard renders the profile as a vCard 3.0 document so visitors can save
// the contact. profileURL is written to the URL property when non-empty.
//
// Lines use CRLF separators and property values are escaped per RFC 6350.
// Properties with no value are omitted.
func (p *Profile) VCard(profileURL string) string {
	first, last := p.FirstName, p.LastName
	org := ""
	if p.Type == ProfileTypeCompany {
		org = p.CompanyName
		if first == "" && last == "" {
			first, last = splitName(p.ContactPerson)
		}
	}

	fn := strings.TrimSpace(first + " " + last)
	if fn == "" {
		fn = p.DisplayName()
	}

	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + escapeVCard(fn),
	}
	if first != "" {
		lines = append(lines, "N:"+escapeVCard(last)+";"+escapeVCard(first)+";;;")
	}
	if p.Email != "" {
		lines = append(lines, "EMAIL:"+escapeVCard(p.Email))
	}
	if p.Phone != "" {
		lines = append(lines, "TEL:"+escapeVCard(p.Phone))
	}
	if org != "" {
		lines = append(lines, "ORG:"+escapeVCard(org))
	}
	if profileURL != "" {
		lines = append(lines, "URL:"+escapeVCard(profileURL))
	}
	lines = append(lines, "END:VCARD")

	return strings.Join(lines, "\r\n") + "\r\n"
}

// VCardFilename returns the download name for the profile's vCard,
// e.g. "John_Doe.vcf".
func (p *Profile) VCardFilename() string {
	first, last := p.FirstName, p.LastName
	if p.Type == ProfileTypeCompany && first == "" && last == "" {
		first, last = splitName(p.ContactPerson)
	}
	if first == "" {
		first = "contact"
	}
	if last == "" {
		last = "card"
	}
	return sanitizeFilename(first) + "_" + sanitizeFilename(last) + ".vcf"
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

var vcardEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	";", `\;`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escapeVCard(s string) string {
	return vcardEscaper.Replace(s)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '/' || r == '\\' || r == '"' || r < 0x20:
			return -1
		}
		return r
	}, s)
}
