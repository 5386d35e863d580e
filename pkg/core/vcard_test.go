package core

import (
	"strings"
	"testing"
)

func TestVCardIndividual(t *testing.T) {
	p := Profile{
		Type:      ProfileTypeIndividual,
		Username:  "johndoe",
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Phone:     "+1 555 0100",
	}

	got := p.VCard("https://cards.example.com/us/johndoe")
	want := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:John Doe",
		"N:Doe;John;;;",
		"EMAIL:john@example.com",
		"TEL:+1 555 0100",
		"URL:https://cards.example.com/us/johndoe",
		"END:VCARD",
	}, "\r\n") + "\r\n"

	if got != want {
		t.Fatalf("unexpected vcard:\n%s\nwant:\n%s", got, want)
	}
	if name := p.VCardFilename(); name != "John_Doe.vcf" {
		t.Errorf("VCardFilename = %q", name)
	}
}

func TestVCardCompany(t *testing.T) {
	p := Profile{
		Type:          ProfileTypeCompany,
		Username:      "acme",
		CompanyName:   "Acme, Inc; Tools",
		ContactPerson: "Jane Smith",
		Email:         "hello@acme.test",
	}

	got := p.VCard("")
	if !strings.Contains(got, "FN:Jane Smith\r\n") {
		t.Errorf("expected contact person as FN, got:\n%s", got)
	}
	if !strings.Contains(got, "N:Smith;Jane;;;\r\n") {
		t.Errorf("expected structured name, got:\n%s", got)
	}
	if !strings.Contains(got, `ORG:Acme\, Inc\; Tools`) {
		t.Errorf("expected escaped ORG, got:\n%s", got)
	}
	if strings.Contains(got, "URL:") || strings.Contains(got, "TEL:") {
		t.Errorf("empty properties must be omitted, got:\n%s", got)
	}
	if name := p.VCardFilename(); name != "Jane_Smith.vcf" {
		t.Errorf("VCardFilename = %q", name)
	}
}

func TestVCardFallbacks(t *testing.T) {
	p := Profile{Type: ProfileTypeIndividual, Username: "ghost", Email: "g@example.com"}
	got := p.VCard("")
	if !strings.Contains(got, "FN:ghost\r\n") {
		t.Errorf("expected username as FN, got:\n%s", got)
	}
	if strings.Contains(got, "\r\nN:") {
		t.Errorf("N must be omitted without a first name, got:\n%s", got)
	}
	if name := p.VCardFilename(); name != "contact_card.vcf" {
		t.Errorf("VCardFilename = %q", name)
	}
}
