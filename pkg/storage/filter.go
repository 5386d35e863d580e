package storage

import (
	"strings"

	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/db"
)

// Searchable profile columns.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldUsername        = "username"
	FieldBio             = "bio"
	FieldCompanyName     = "company_name"
	FieldContactPerson   = "contact_person"
	FieldBusinessDetails = "business_details"
)

var (
	individualFields = []string{FieldFirstName, FieldLastName, FieldUsername, FieldBio}
	companyFields    = []string{FieldCompanyName, FieldContactPerson, FieldUsername, FieldBusinessDetails}
	allFields        = []string{
		FieldFirstName, FieldLastName, FieldCompanyName, FieldContactPerson,
		FieldUsername, FieldBio, FieldBusinessDetails,
	}
)

// SearchFields returns the columns the term is matched against for a
// profile type filter. Unknown or empty types search every field.
func SearchFields(t core.ProfileType) []string {
	switch t {
	case core.ProfileTypeIndividual:
		return individualFields
	case core.ProfileTypeCompany:
		return companyFields
	default:
		return allFields
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern turns a literal term into a substring LIKE pattern using
// backslash as the escape character.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// filter accumulates WHERE predicates and their bound arguments. User input
// only ever reaches the database through args.
type filter struct {
	dialect db.Dialect
	conds   []string
	args    []any
}

func newFilter(d db.Dialect) *filter {
	return &filter{dialect: d}
}

// bind appends v to the argument list and returns its placeholder.
func (f *filter) bind(v any) string {
	f.args = append(f.args, v)
	return f.dialect.Placeholder(len(f.args))
}

func (f *filter) where(cond string) {
	f.conds = append(f.conds, cond)
}

func (f *filter) active() {
	if f.dialect == db.DialectPostgres {
		f.where("is_active")
		return
	}
	f.where("is_active = 1")
}

func (f *filter) matchTerm(term string, fields []string) {
	pattern := LikePattern(term)
	ors := make([]string, 0, len(fields))
	if f.dialect == db.DialectPostgres {
		ph := f.bind(pattern)
		for _, field := range fields {
			ors = append(ors, field+" ILIKE "+ph+` ESCAPE '\'`)
		}
	} else {
		for _, field := range fields {
			ors = append(ors, "lower("+field+") LIKE lower("+f.bind(pattern)+`) ESCAPE '\'`)
		}
	}
	f.where("(" + strings.Join(ors, " OR ") + ")")
}

func (f *filter) clause() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// searchFilter builds the predicate set shared by the page and count queries.
func searchFilter(d db.Dialect, q Query) *filter {
	f := newFilter(d)
	f.active()
	if q.Type.Valid() {
		f.where("profile_type = " + f.bind(string(q.Type)))
	}
	if q.Country != "" {
		f.where("country_code = " + f.bind(core.NormalizeCountry(q.Country)))
	}
	f.matchTerm(q.Term, SearchFields(q.Type))
	return f
}

const profileColumns = `id, email, username, profile_type, country_code, created_at, updated_at,
	is_active, phone, avatar_url, social_links, first_name, last_name, address, bio,
	company_name, company_logo, contact_person, business_details`

// searchSQL returns the page query (with a windowed total column) and the
// standalone count query for q.
func searchSQL(d db.Dialect, q Query) (pageSQL string, pageArgs []any, countSQL string, countArgs []any) {
	f := searchFilter(d, q)
	countSQL = "SELECT COUNT(*) FROM profiles" + f.clause()
	countArgs = append([]any(nil), f.args...)

	where := f.clause()
	limit := f.bind(q.Limit)
	offset := f.bind(q.Offset)
	pageSQL = "SELECT " + profileColumns + ", COUNT(*) OVER () AS total_count FROM profiles" +
		where + " ORDER BY created_at DESC, id ASC LIMIT " + limit + " OFFSET " + offset
	return pageSQL, f.args, countSQL, countArgs
}
