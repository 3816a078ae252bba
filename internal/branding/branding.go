// Package branding picks per-organization colors, fonts and logo for reports.
package branding

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPrimary   = "#0f4fa8"
	DefaultSecondary = "#10b981"
	DefaultAccent    = "#f97316"
	DefaultFont      = "Inter, -apple-system, BlinkMacSystemFont, sans-serif"
)

type Colors struct {
	Primary   string `yaml:"primary" json:"primary"`
	Secondary string `yaml:"secondary" json:"secondary"`
	Accent    string `yaml:"accent" json:"accent"`
}

type Fonts struct {
	Primary string `yaml:"primary" json:"primary"`
	Heading string `yaml:"heading" json:"heading"`
}

type Logo struct {
	Path string `yaml:"path" json:"path,omitempty"`
	Alt  string `yaml:"alt" json:"alt,omitempty"`
	// DataURI is filled from Path or from an uploaded logo.
	DataURI string `yaml:"-" json:"-"`
}

// Theme is one named branding.
type Theme struct {
	Name      string `yaml:"name" json:"name"`
	Colors    Colors `yaml:"colors" json:"colors"`
	Fonts     Fonts  `yaml:"fonts" json:"fonts"`
	Logo      Logo   `yaml:"logo" json:"logo"`
	CustomCSS string `yaml:"custom_css" json:"custom_css,omitempty"`
}

// Rule maps an organization-name keyword (case-insensitive) to theme keys
// tried in order.
type Rule struct {
	Keyword string   `yaml:"keyword"`
	Themes  []string `yaml:"themes"`
}

// Config is the branding file.
type Config struct {
	Default       Theme            `yaml:"default"`
	Themes        map[string]Theme `yaml:"themes"`
	MatchingRules []Rule           `yaml:"matching_rules"`
}

// DefaultTheme is used when nothing else applies.
func DefaultTheme() Theme {
	return Theme{
		Name:   "기본 브랜딩",
		Colors: Colors{Primary: DefaultPrimary, Secondary: DefaultSecondary, Accent: DefaultAccent},
		Fonts:  Fonts{Primary: DefaultFont, Heading: DefaultFont},
	}
}

// Load reads a branding file. A missing file yields the default config.
func Load(path string) (Config, error) {
	cfg := Config{Default: DefaultTheme()}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read branding config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{Default: DefaultTheme()}, fmt.Errorf("parse branding config: %w", err)
	}
	return cfg, nil
}

// Resolve returns the theme for an organization: the first matching rule
// whose theme exists, else the default. Missing fields are filled from the
// default theme and a logo path is inlined as a data URI.
func (c Config) Resolve(org string) Theme {
	theme := c.Default
	upper := strings.ToUpper(org)
	if org != "" {
	rules:
		for _, r := range c.MatchingRules {
			if r.Keyword == "" || r.Keyword == "*" || !strings.Contains(upper, strings.ToUpper(r.Keyword)) {
				continue
			}
			for _, key := range r.Themes {
				if t, ok := c.Themes[key]; ok {
					theme = t
					break rules
				}
			}
		}
	}
	theme = theme.withDefaults()
	if theme.Logo.DataURI == "" && theme.Logo.Path != "" {
		if uri, err := fileDataURI(theme.Logo.Path); err == nil {
			theme.Logo.DataURI = uri
		}
	}
	if theme.Logo.Alt == "" && org != "" {
		theme.Logo.Alt = org + " 로고"
	}
	return theme
}

// Names lists configured theme keys with their display names.
func (c Config) Names() map[string]string {
	out := map[string]string{"default": c.Default.Name}
	for k, t := range c.Themes {
		out[k] = t.Name
	}
	return out
}

var (
	colorPattern  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	unsafeCSSChar = regexp.MustCompile(`[;{}<>\\]`)
)

func (t Theme) withDefaults() Theme {
	d := DefaultTheme()
	t.Colors.Primary = color(t.Colors.Primary, d.Colors.Primary)
	t.Colors.Secondary = color(t.Colors.Secondary, d.Colors.Secondary)
	t.Colors.Accent = color(t.Colors.Accent, d.Colors.Accent)
	t.Fonts.Primary = font(t.Fonts.Primary, d.Fonts.Primary)
	t.Fonts.Heading = font(t.Fonts.Heading, t.Fonts.Primary)
	if t.Name == "" {
		t.Name = d.Name
	}
	return t
}

func color(v, fallback string) string {
	if v = strings.TrimSpace(v); colorPattern.MatchString(v) {
		return v
	}
	return fallback
}

func font(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" && !unsafeCSSChar.MatchString(v) {
		return v
	}
	return fallback
}

// Override is an admin-edited branding stored per organization.
type Override struct {
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	FontFamily     string
	CustomCSS      string
	Logo           []byte
}

// Apply layers o over t; blank or invalid fields keep t's values.
func (t Theme) Apply(o Override) Theme {
	t.Colors.Primary = color(o.PrimaryColor, t.Colors.Primary)
	t.Colors.Secondary = color(o.SecondaryColor, t.Colors.Secondary)
	t.Colors.Accent = color(o.AccentColor, t.Colors.Accent)
	if f := font(o.FontFamily, ""); f != "" {
		t.Fonts.Primary = f
		t.Fonts.Heading = f
	}
	if strings.TrimSpace(o.CustomCSS) != "" {
		t.CustomCSS = o.CustomCSS
	}
	if len(o.Logo) > 0 {
		t.Logo.DataURI = DataURI(o.Logo)
	}
	return t
}

// CSSVariables renders the :root custom properties and brand helper classes.
func (t Theme) CSSVariables() string {
	t = t.withDefaults()
	var b strings.Builder
	fmt.Fprintf(&b, ":root {\n  --brand-primary: %s;\n  --brand-secondary: %s;\n  --brand-accent: %s;\n  --brand-font-primary: %s;\n  --brand-font-heading: %s;\n}\n",
		t.Colors.Primary, t.Colors.Secondary, t.Colors.Accent, t.Fonts.Primary, t.Fonts.Heading)
	for _, name := range []string{"primary", "secondary", "accent"} {
		fmt.Fprintf(&b, ".brand-%[1]s { color: var(--brand-%[1]s) !important; }\n", name)
		fmt.Fprintf(&b, ".bg-brand-%[1]s { background-color: var(--brand-%[1]s) !important; }\n", name)
		fmt.Fprintf(&b, ".border-brand-%[1]s { border-color: var(--brand-%[1]s) !important; }\n", name)
	}
	b.WriteString(".font-brand-primary { font-family: var(--brand-font-primary) !important; }\n")
	b.WriteString(".font-brand-heading { font-family: var(--brand-font-heading) !important; }\n")
	if css := strings.TrimSpace(t.CustomCSS); css != "" && !strings.Contains(strings.ToLower(css), "</style") {
		b.WriteString(css)
		b.WriteString("\n")
	}
	return b.String()
}

// DataURI encodes an image for inline use.
func DataURI(img []byte) string {
	return "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}

func fileDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DataURI(data), nil
}
