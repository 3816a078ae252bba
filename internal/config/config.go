// Package config loads service settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ipo-report-go/internal/aggregator"
	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/mailer"
	"ipo-report-go/internal/pdf"
	"ipo-report-go/internal/report"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scoring ScoringConfig `yaml:"scoring"`
	// Benchmarks maps sub-category labels to comparison scores.
	Benchmarks map[string]float64 `yaml:"benchmarks"`
	AI         AIConfig           `yaml:"ai"`
	PDF        PDFConfig          `yaml:"pdf"`
	SMTP       SMTPConfig         `yaml:"smtp"`
	Storage    StorageConfig      `yaml:"storage"`
	// BrandingPath points at the branding YAML file.
	BrandingPath string `yaml:"branding_path"`
	// IndexPath is the item index workbook used when an upload has none.
	IndexPath string `yaml:"index_path"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AdminToken     string        `yaml:"admin_token"`
}

type ScoringConfig struct {
	MinGroupSize          int                   `yaml:"min_group_size"`
	MinAnswerLength       int                   `yaml:"min_answer_length"`
	MaxAnswers            int                   `yaml:"max_answers"`
	RepresentativeAnswers int                   `yaml:"representative_answers"`
	Thresholds            aggregator.Thresholds `yaml:"thresholds"`
	BenchmarkOffset       float64               `yaml:"benchmark_offset"`
	ObjectiveRatio        float64               `yaml:"objective_ratio"`
	Concurrency           int                   `yaml:"concurrency"`
}

type AIConfig struct {
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	MaxOutputTokens   int32         `yaml:"max_output_tokens"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxElapsed        time.Duration `yaml:"max_elapsed"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	UseMock           bool          `yaml:"use_mock"`
}

type PDFConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ControlURL string `yaml:"control_url"`
	ChromeBin  string `yaml:"chrome_bin"`
	Headless   bool   `yaml:"headless"`
	NoSandbox  bool   `yaml:"no_sandbox"`
	Workers    int    `yaml:"workers"`
}

type SMTPConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	From       string        `yaml:"from"`
	FromName   string        `yaml:"from_name"`
	StartTLS   bool          `yaml:"starttls"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	OutputDir     string `yaml:"output_dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// Default returns the production constants.
func Default() Config {
	rep := report.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			MaxUploadMB:    20,
			RequestTimeout: 10 * time.Minute,
		},
		Scoring: ScoringConfig{
			MinGroupSize:          rep.MinGroupSize,
			MinAnswerLength:       rep.MinAnswerLength,
			MaxAnswers:            rep.MaxAnswers,
			RepresentativeAnswers: rep.RepresentativeAnswers,
			Thresholds:            rep.Scoring.Thresholds,
			BenchmarkOffset:       rep.Scoring.BenchmarkOffset,
			ObjectiveRatio:        rep.Scoring.ObjectiveRatio,
			Concurrency:           rep.Concurrency,
		},
		AI: AIConfig{
			Model:             interpret.DefaultModel,
			Temperature:       0.4,
			MaxOutputTokens:   2048,
			RequestTimeout:    60 * time.Second,
			MaxElapsed:        2 * time.Minute,
			RequestsPerMinute: 30,
		},
		PDF: PDFConfig{Enabled: true, Headless: true, Workers: 2},
		SMTP: SMTPConfig{
			Port:       587,
			StartTLS:   true,
			FromName:   "조직효과성 진단",
			Timeout:    30 * time.Second,
			MaxElapsed: time.Minute,
		},
		Storage:      StorageConfig{DatabasePath: "data/ipo-report.db", OutputDir: "output", RetentionDays: 90},
		BrandingPath: "branding.yaml",
		IndexPath:    "data/item_index.xlsx",
	}
}

// Load reads .env (when present), then the YAML file at path (when present),
// then applies environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("ADMIN_TOKEN", &c.Server.AdminToken)
	str("DATABASE_PATH", &c.Storage.DatabasePath)
	str("OUTPUT_DIR", &c.Storage.OutputDir)
	str("INDEX_PATH", &c.IndexPath)
	str("BRANDING_PATH", &c.BrandingPath)
	str("GENAI_MODEL", &c.AI.Model)
	str("CHROME_URL", &c.PDF.ControlURL)
	str("CHROME_BIN", &c.PDF.ChromeBin)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)
	for _, key := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if v, ok := lookup(key); ok && v != "" {
			c.AI.APIKey = v
			break
		}
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("USE_MOCK_LLM"); ok {
		c.AI.UseMock = strings.EqualFold(v, "true")
	}
	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = p
	}
	if v, ok := lookup("PDF_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PDF_WORKERS: %w", err)
		}
		c.PDF.Workers = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ReportOptions converts the scoring section.
func (c Config) ReportOptions() report.Options {
	opts := report.DefaultOptions()
	s := c.Scoring
	opts.Scoring.Thresholds = s.Thresholds
	opts.Scoring.BenchmarkOffset = s.BenchmarkOffset
	opts.Scoring.ObjectiveRatio = s.ObjectiveRatio
	opts.Scoring.Benchmarks = c.Benchmarks
	opts.MinGroupSize = s.MinGroupSize
	opts.MinAnswerLength = s.MinAnswerLength
	opts.MaxAnswers = s.MaxAnswers
	opts.RepresentativeAnswers = s.RepresentativeAnswers
	if s.Concurrency > 0 {
		opts.Concurrency = s.Concurrency
	}
	return opts
}

func (c Config) ClientConfig() interpret.ClientConfig {
	return interpret.ClientConfig{
		APIKey:            c.AI.APIKey,
		Model:             c.AI.Model,
		Temperature:       c.AI.Temperature,
		MaxOutputTokens:   c.AI.MaxOutputTokens,
		RequestTimeout:    c.AI.RequestTimeout,
		MaxElapsed:        c.AI.MaxElapsed,
		RequestsPerMinute: c.AI.RequestsPerMinute,
	}
}

func (c Config) ChromeConfig() pdf.ChromeConfig {
	return pdf.ChromeConfig{
		ControlURL: c.PDF.ControlURL,
		Bin:        c.PDF.ChromeBin,
		Headless:   c.PDF.Headless,
		NoSandbox:  c.PDF.NoSandbox,
	}
}

func (c Config) MailerConfig() mailer.Config {
	return mailer.Config{
		Host:       c.SMTP.Host,
		Port:       c.SMTP.Port,
		Username:   c.SMTP.Username,
		Password:   c.SMTP.Password,
		From:       c.SMTP.From,
		FromName:   c.SMTP.FromName,
		StartTLS:   c.SMTP.StartTLS,
		Timeout:    c.SMTP.Timeout,
		MaxElapsed: c.SMTP.MaxElapsed,
	}
}

// Retention is how long reports and logs are kept; zero disables cleanup.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}
