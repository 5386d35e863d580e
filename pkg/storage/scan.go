package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/db"
)

// sqliteTimeLayout is fixed width so that text ordering of the stored
// timestamps matches chronological ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullableText holds the optional text columns of a profile row.
type nullableText struct {
	phone, avatarURL sql.NullString

	firstName, lastName, address, bio sql.NullString

	companyName, companyLogo, contactPerson, businessDetails sql.NullString
}

// contact returns the destinations preceding social_links.
func (n *nullableText) contact() []any {
	return []any{&n.phone, &n.avatarURL}
}

// tail returns the variant field destinations following social_links.
func (n *nullableText) tail() []any {
	return []any{
		&n.firstName, &n.lastName, &n.address, &n.bio,
		&n.companyName, &n.companyLogo, &n.contactPerson, &n.businessDetails,
	}
}

func (n *nullableText) apply(p *core.Profile) {
	p.Phone = n.phone.String
	p.AvatarURL = n.avatarURL.String
	p.FirstName = n.firstName.String
	p.LastName = n.lastName.String
	p.Address = n.address.String
	p.Bio = n.bio.String
	p.CompanyName = n.companyName.String
	p.CompanyLogo = n.companyLogo.String
	p.ContactPerson = n.contactPerson.String
	p.BusinessDetails = n.businessDetails.String
}

// scanSQLiteProfile reads one profile row in profileColumns order. When
// withTotal is set the trailing windowed count is returned as well.
func scanSQLiteProfile(rs rowScanner, withTotal bool) (core.Profile, int, error) {
	var (
		p                    core.Profile
		id, typ              string
		createdAt, updatedAt string
		links                sql.NullString
		text                 nullableText
		total                int64
	)

	dest := []any{&id, &p.Email, &p.Username, &typ, &p.CountryCode, &createdAt, &updatedAt, &p.IsActive}
	dest = append(dest, text.contact()...)
	dest = append(dest, &links)
	dest = append(dest, text.tail()...)
	if withTotal {
		dest = append(dest, &total)
	}
	if err := rs.Scan(dest...); err != nil {
		return p, 0, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return p, 0, fmt.Errorf("parsing profile id %q: %w", id, err)
	}
	if p.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return p, 0, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return p, 0, fmt.Errorf("parsing updated_at: %w", err)
	}
	p.Type = core.ProfileType(typ)
	text.apply(&p)
	if links.Valid && links.String != "" {
		if err := json.Unmarshal([]byte(links.String), &p.SocialLinks); err != nil {
			return p, 0, fmt.Errorf("decoding social links: %w", err)
		}
	}
	return p, int(total), nil
}

// scanPostgresProfile is the postgres counterpart of scanSQLiteProfile.
func scanPostgresProfile(rs rowScanner, withTotal bool) (core.Profile, int, error) {
	var (
		p     core.Profile
		typ   string
		links []byte
		text  nullableText
		total int64
	)

	dest := []any{&p.ID, &p.Email, &p.Username, &typ, &p.CountryCode, &p.CreatedAt, &p.UpdatedAt, &p.IsActive}
	dest = append(dest, text.contact()...)
	dest = append(dest, &links)
	dest = append(dest, text.tail()...)
	if withTotal {
		dest = append(dest, &total)
	}
	if err := rs.Scan(dest...); err != nil {
		return p, 0, err
	}

	p.Type = core.ProfileType(typ)
	text.apply(&p)
	if len(links) > 0 {
		if err := json.Unmarshal(links, &p.SocialLinks); err != nil {
			return p, 0, fmt.Errorf("decoding social links: %w", err)
		}
	}
	return p, int(total), nil
}

// encodeLinks returns the JSON text stored for social links, or nil (NULL)
// when there are none.
func encodeLinks(links core.SocialLinks) (any, error) {
	if len(links) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("encoding social links: %w", err)
	}
	return string(data), nil
}

// nullString maps the empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// upsertSQL inserts a profile or updates it by id. The profile type of an
// existing row never changes; such updates affect zero rows.
func upsertSQL(d db.Dialect) string {
	cols := strings.Split(profileColumns, ",")
	names := make([]string, len(cols))
	phs := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		names[i] = strings.TrimSpace(c)
		phs[i] = d.Placeholder(i + 1)
		switch names[i] {
		case "id", "profile_type", "created_at":
		default:
			sets = append(sets, names[i]+" = excluded."+names[i])
		}
	}
	return "INSERT INTO profiles (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(phs, ", ") +
		") ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ") +
		" WHERE profiles.profile_type = excluded.profile_type"
}

// upsertArgs returns the arguments of upsertSQL in profileColumns order.
func upsertArgs(d db.Dialect, p *core.Profile) ([]any, error) {
	links, err := encodeLinks(p.SocialLinks)
	if err != nil {
		return nil, err
	}

	var id, createdAt, updatedAt, active any
	if d == db.DialectPostgres {
		id, createdAt, updatedAt, active = p.ID.String(), p.CreatedAt, p.UpdatedAt, p.IsActive
	} else {
		id, createdAt, updatedAt = p.ID.String(), formatSQLiteTime(p.CreatedAt), formatSQLiteTime(p.UpdatedAt)
		active = 0
		if p.IsActive {
			active = 1
		}
	}

	return []any{
		id, p.Email, p.Username, string(p.Type), p.CountryCode, createdAt, updatedAt, active,
		nullString(p.Phone), nullString(p.AvatarURL), links,
		nullString(p.FirstName), nullString(p.LastName), nullString(p.Address), nullString(p.Bio),
		nullString(p.CompanyName), nullString(p.CompanyLogo), nullString(p.ContactPerson), nullString(p.BusinessDetails),
	}, nil
}

// prepareSave normalizes and validates p before it is written.
func prepareSave(p *core.Profile) error {
	if p == nil {
		return &core.ValidationError{Message: "profile is required"}
	}
	p.Normalize(time.Now())
	return p.Validate()
}

var errTypeChange = &core.ValidationError{Field: "profile_type", Message: "profile type cannot be changed"}
