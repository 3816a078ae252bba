package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/report"
)

func TestDefaultMatchesReportDefaults(t *testing.T) {
	cfg := Default()
	opts := cfg.ReportOptions()
	want := report.DefaultOptions()

	assert.Equal(t, want.MinGroupSize, opts.MinGroupSize)
	assert.Equal(t, 3, opts.MinGroupSize)
	assert.Equal(t, 10, opts.MinAnswerLength)
	assert.Equal(t, 20, opts.MaxAnswers)
	assert.Equal(t, 3.8, opts.Scoring.Thresholds.Excellent)
	assert.Equal(t, 3.4, opts.Scoring.Thresholds.Good)
	assert.Equal(t, 3.0, opts.Scoring.Thresholds.Fair)
	assert.Equal(t, 0.25, opts.Scoring.BenchmarkOffset)
	assert.Equal(t, 0.8, opts.Scoring.ObjectiveRatio)
	assert.Nil(t, opts.Scoring.Benchmarks)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
scoring:
  min_group_size: 5
  thresholds:
    excellent: 4.0
    good: 3.5
    fair: 3.1
benchmarks:
  목적경영: 3.6
ai:
  request_timeout: 15s
smtp:
  host: smtp.example.com
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("GEMINI_API_KEY", "key-1")
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scoring.MinGroupSize)
	// untouched keys keep their defaults
	assert.Equal(t, 20, cfg.Scoring.MaxAnswers)
	assert.Equal(t, 15*time.Second, cfg.AI.RequestTimeout)
	assert.Equal(t, "key-1", cfg.AI.APIKey)
	assert.True(t, cfg.AI.UseMock)
	assert.Equal(t, 2525, cfg.MailerConfig().Port)
	assert.Equal(t, "smtp.example.com", cfg.MailerConfig().Host)

	opts := cfg.ReportOptions()
	assert.Equal(t, 4.0, opts.Scoring.Thresholds.Excellent)
	assert.Equal(t, map[string]float64{"목적경영": 3.6}, opts.Scoring.Benchmarks)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Scoring, cfg.Scoring)
}

func TestLoadErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv("SMTP_PORT", "abc")
	_, err = Load("")
	assert.Error(t, err)
}

func TestApplyEnvLists(t *testing.T) {
	cfg := Default()
	env := map[string]string{"ALLOWED_ORIGINS": " https://a.example, ,https://b.example ", "GOOGLE_API_KEY": "g", "GEMINI_API_KEY": "m"}
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "g", cfg.AI.APIKey)
}
