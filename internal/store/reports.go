package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/types"
)

// ReportSnapshot is a stored report record keyed by organization and data hash.
type ReportSnapshot struct {
	ID               int64              `json:"id"`
	OrganizationName string             `json:"organization_name"`
	UnitName         string             `json:"unit_name"`
	DataHash         string             `json:"data_hash"`
	Record           types.ReportRecord `json:"record"`
	HasAnalysis      bool               `json:"has_analysis"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// SaveReport stores rec under (org, hash). Saving the same data again only
// refreshes updated_at and keeps any cached analysis.
func (s *Store) SaveReport(ctx context.Context, org, hash string, rec types.ReportRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (organization_name, unit_name, data_hash, record_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_name, data_hash) DO UPDATE SET
			record_json = excluded.record_json,
			updated_at = excluded.updated_at`,
		org, rec.UnitName, hash, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// GetInterpretation implements interpret.Cache.
func (s *Store) GetInterpretation(ctx context.Context, org, hash string) (interpret.Interpretation, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT ai_analysis FROM reports WHERE organization_name = ? AND data_hash = ?`, org, hash).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && raw == "") {
		return interpret.Interpretation{}, false, nil
	}
	if err != nil {
		return interpret.Interpretation{}, false, fmt.Errorf("get interpretation: %w", err)
	}
	var in interpret.Interpretation
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		s.log.WithError(err).WithField("hash", hash).Warn("discarding unreadable cached analysis")
		return interpret.Interpretation{}, false, nil
	}
	return in, true, nil
}

// PutInterpretation implements interpret.Cache. A report row is created when
// none exists yet for the hash.
func (s *Store) PutInterpretation(ctx context.Context, org, hash string, in interpret.Interpretation) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode interpretation: %w", err)
	}
	now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (organization_name, unit_name, data_hash, ai_analysis, created_at, updated_at)
		VALUES (?, '', ?, ?, ?, ?)
		ON CONFLICT(organization_name, data_hash) DO UPDATE SET
			ai_analysis = excluded.ai_analysis,
			updated_at = excluded.updated_at`,
		org, hash, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("put interpretation: %w", err)
	}
	return nil
}

// ListReports returns the newest snapshots first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_name, unit_name, data_hash, record_json, ai_analysis != '', created_at, updated_at
		FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	out := []ReportSnapshot{}
	for rows.Next() {
		var (
			r                ReportSnapshot
			raw              string
			created, updated int64
		)
		if err := rows.Scan(&r.ID, &r.OrganizationName, &r.UnitName, &r.DataHash, &raw, &r.HasAnalysis, &created, &updated); err != nil {
			return nil, err
		}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &r.Record); err != nil {
				return nil, fmt.Errorf("decode report %d: %w", r.ID, err)
			}
		}
		r.CreatedAt, r.UpdatedAt = fromStamp(created), fromStamp(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}
