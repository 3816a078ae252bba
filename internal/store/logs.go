package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Delivery outcomes recorded in the log tables.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// PDFGeneration records one printed report.
type PDFGeneration struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	UnitName   string    `json:"unit_name"`
	FileName   string    `json:"file_name"`
	SizeBytes  int       `json:"size_bytes"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmailLog records one delivery attempt.
type EmailLog struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Recipients  []string  `json:"recipients"`
	Subject     string    `json:"subject"`
	Attachments int       `json:"attachments"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Store) LogPDF(ctx context.Context, p PDFGeneration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pdf_generations (run_id, unit_name, file_name, size_bytes, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.UnitName, p.FileName, p.SizeBytes, p.DurationMs, p.Status, p.Error, s.stamp())
	if err != nil {
		return fmt.Errorf("log pdf: %w", err)
	}
	return nil
}

func (s *Store) ListPDFGenerations(ctx context.Context, limit int) ([]PDFGeneration, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, unit_name, file_name, size_bytes, duration_ms, status, error, created_at
		FROM pdf_generations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pdf generations: %w", err)
	}
	defer rows.Close()
	out := []PDFGeneration{}
	for rows.Next() {
		var (
			p       PDFGeneration
			created int64
		)
		if err := rows.Scan(&p.ID, &p.RunID, &p.UnitName, &p.FileName, &p.SizeBytes, &p.DurationMs, &p.Status, &p.Error, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = fromStamp(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) LogEmail(ctx context.Context, e EmailLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_logs (run_id, recipients, subject, attachments, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, strings.Join(e.Recipients, ","), e.Subject, e.Attachments, e.Status, e.Error, s.stamp())
	if err != nil {
		return fmt.Errorf("log email: %w", err)
	}
	return nil
}

func (s *Store) ListEmailLogs(ctx context.Context, limit int) ([]EmailLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, recipients, subject, attachments, status, error, created_at
		FROM email_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	defer rows.Close()
	out := []EmailLog{}
	for rows.Next() {
		var (
			e          EmailLog
			recipients string
			created    int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &recipients, &e.Subject, &e.Attachments, &e.Status, &e.Error, &created); err != nil {
			return nil, err
		}
		if recipients != "" {
			e.Recipients = strings.Split(recipients, ",")
		}
		e.CreatedAt = fromStamp(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
