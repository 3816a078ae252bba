package interpret

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/report"
	"ipo-report-go/internal/types"
)

// Interpretation is the narrative for one report. Final is the reviewer
// output, or the writer output when the reviewer returned nothing.
type Interpretation struct {
	Score      string `json:"score"`
	Items      string `json:"items"`
	FreeText   string `json:"free_text"`
	OrgContext string `json:"org_context"`
	Writer     string `json:"writer"`
	Reviewer   string `json:"reviewer"`
	Final      string `json:"final"`

	DataHash string `json:"data_hash"`
	Cached   bool   `json:"cached"`
	// Degraded is set when any stage fell back to stock text; Diagnostic
	// says which and why.
	Degraded   bool   `json:"degraded"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Empty reports whether there is nothing worth showing.
func (in Interpretation) Empty() bool {
	return strings.TrimSpace(in.Final) == "" && strings.TrimSpace(in.Writer) == ""
}

// Cache stores interpretations by organization and data hash.
type Cache interface {
	GetInterpretation(ctx context.Context, org, hash string) (Interpretation, bool, error)
	PutInterpretation(ctx context.Context, org, hash string, in Interpretation) error
}

// Interpreter runs the six-stage chain.
type Interpreter struct {
	gen   Generator
	cache Cache
	log   *logger.Logger
}

// New builds an Interpreter; cache may be nil.
func New(gen Generator, cache Cache, log *logger.Logger) *Interpreter {
	return &Interpreter{gen: gen, cache: cache, log: log.WithComponent("interpret")}
}

// Interpret returns the cached interpretation for rec unless force is set,
// otherwise runs the chain. org keys the cache and must match the key the
// report snapshot is stored under; empty falls back to rec.OrganizationName.
// It does not fail: stage errors and a missing generator produce a degraded
// result.
func (i *Interpreter) Interpret(ctx context.Context, org string, rec types.ReportRecord, force bool) Interpretation {
	if org == "" {
		org = rec.OrganizationName
	}
	log := i.log.WithField("unit", rec.UnitName)
	hash, err := report.DataHash(rec)
	if err != nil {
		log.WithError(err).Warn("hash failed, cache bypassed")
	}

	if i.cache != nil && hash != "" && !force {
		cached, ok, err := i.cache.GetInterpretation(ctx, org, hash)
		switch {
		case err != nil:
			log.WithError(err).Warn("cache lookup failed")
		case ok:
			cached.Cached = true
			cached.DataHash = hash
			log.Info("interpretation served from cache")
			return cached
		}
	}

	out := Interpretation{DataHash: hash}
	var problems []string
	run := func(s Stage, prompt string) string {
		if i.gen == nil {
			problems = append(problems, fmt.Sprintf("%s: %v", s, ErrNotConfigured))
			return fallbacks[s]
		}
		text, err := i.gen.Generate(ctx, prompt)
		if s == StageReviewer && errors.Is(err, ErrEmptyResponse) {
			// an empty review keeps the writer draft
			text, err = "", nil
		}
		if err == nil {
			text = cleanText(text)
		}
		if err != nil || (text == "" && s != StageReviewer) {
			if err == nil {
				err = ErrEmptyResponse
			}
			log.WithError(err).WithField("stage", string(s)).Warn("stage degraded")
			problems = append(problems, fmt.Sprintf("%s: %v", s, err))
			return fallbacks[s]
		}
		return text
	}

	out.Score = run(StageScore, scorePrompt(rec))
	out.Items = run(StageItems, itemsPrompt(rec))
	out.FreeText = run(StageFreeText, freeTextPrompt(rec))
	out.OrgContext = run(StageOrgContext, orgContextPrompt(rec))
	out.Writer = run(StageWriter, writerPrompt(rec, out))
	out.Reviewer = run(StageReviewer, reviewerPrompt(rec, out.Writer))
	out.Final = out.Reviewer
	if out.Final == "" {
		out.Final = out.Writer
	}

	if len(problems) > 0 {
		out.Degraded = true
		out.Diagnostic = strings.Join(problems, "; ")
		return out
	}
	if i.cache != nil && hash != "" {
		if err := i.cache.PutInterpretation(ctx, org, hash, out); err != nil {
			log.WithError(err).Warn("cache store failed")
		}
	}
	log.Info("interpretation generated")
	return out
}
