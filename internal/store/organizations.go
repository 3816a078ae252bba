package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ipo-report-go/internal/branding"
)

// Organization is a customer whose surveys are reported on.
type Organization struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Industry     string    `json:"industry"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var ErrDuplicate = errors.New("store: duplicate")

func (s *Store) CreateOrganization(ctx context.Context, o Organization) (Organization, error) {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return Organization{}, errors.New("store: organization name is required")
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (name, industry, contact_email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		o.Name, o.Industry, o.ContactEmail, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return Organization{}, fmt.Errorf("%w: organization %q", ErrDuplicate, o.Name)
		}
		return Organization{}, fmt.Errorf("insert organization: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Organization{}, err
	}
	return s.GetOrganization(ctx, id)
}

const orgColumns = `id, name, industry, contact_email, created_at, updated_at`

func scanOrganization(row interface{ Scan(...any) error }) (Organization, error) {
	var (
		o                Organization
		created, updated int64
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Industry, &o.ContactEmail, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	o.CreatedAt, o.UpdatedAt = fromStamp(created), fromStamp(updated)
	return o, nil
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (Organization, error) {
	return scanOrganization(s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = ?`, id))
}

func (s *Store) GetOrganizationByName(ctx context.Context, name string) (Organization, error) {
	return scanOrganization(s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE name = ?`, strings.TrimSpace(name)))
}

func (s *Store) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()
	out := []Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOrganization(ctx context.Context, o Organization) (Organization, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET name = ?, industry = ?, contact_email = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(o.Name), o.Industry, o.ContactEmail, s.stamp(), o.ID)
	if err != nil {
		return Organization{}, fmt.Errorf("update organization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Organization{}, ErrNotFound
	}
	return s.GetOrganization(ctx, o.ID)
}

// DeleteOrganization also removes its branding.
func (s *Store) DeleteOrganization(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Branding is the per-organization theme override kept in the database.
type Branding struct {
	OrganizationID int64     `json:"organization_id"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	AccentColor    string    `json:"accent_color"`
	FontFamily     string    `json:"font_family"`
	CustomCSS      string    `json:"custom_css"`
	Logo           []byte    `json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Override converts the row into a theme override.
func (b Branding) Override() branding.Override {
	return branding.Override{
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		AccentColor:    b.AccentColor,
		FontFamily:     b.FontFamily,
		CustomCSS:      b.CustomCSS,
		Logo:           b.Logo,
	}
}

func (s *Store) UpsertBranding(ctx context.Context, b Branding) (Branding, error) {
	if _, err := s.GetOrganization(ctx, b.OrganizationID); err != nil {
		return Branding{}, err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branding_configs (organization_id, primary_color, secondary_color, accent_color, font_family, custom_css, logo, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id) DO UPDATE SET
			primary_color = excluded.primary_color,
			secondary_color = excluded.secondary_color,
			accent_color = excluded.accent_color,
			font_family = excluded.font_family,
			custom_css = excluded.custom_css,
			logo = excluded.logo,
			updated_at = excluded.updated_at`,
		b.OrganizationID, b.PrimaryColor, b.SecondaryColor, b.AccentColor, b.FontFamily, b.CustomCSS, b.Logo, s.stamp())
	if err != nil {
		return Branding{}, fmt.Errorf("upsert branding: %w", err)
	}
	return s.GetBranding(ctx, b.OrganizationID)
}

func (s *Store) GetBranding(ctx context.Context, orgID int64) (Branding, error) {
	var (
		b       Branding
		updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT organization_id, primary_color, secondary_color, accent_color, font_family, custom_css, logo, updated_at
		FROM branding_configs WHERE organization_id = ?`, orgID).
		Scan(&b.OrganizationID, &b.PrimaryColor, &b.SecondaryColor, &b.AccentColor, &b.FontFamily, &b.CustomCSS, &b.Logo, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Branding{}, ErrNotFound
	}
	if err != nil {
		return Branding{}, fmt.Errorf("get branding: %w", err)
	}
	b.UpdatedAt = fromStamp(updated)
	return b, nil
}

// BrandingFor looks the override up by organization name.
func (s *Store) BrandingFor(ctx context.Context, orgName string) (Branding, error) {
	o, err := s.GetOrganizationByName(ctx, orgName)
	if err != nil {
		return Branding{}, err
	}
	return s.GetBranding(ctx, o.ID)
}
