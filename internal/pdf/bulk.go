package pdf

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ipo-report-go/internal/logger"
)

// FileSuffix is appended to every unit name in exported file names.
const FileSuffix = "_조직효과성진단.pdf"

// Job is one page to print.
type Job struct {
	Unit string
	HTML string
}

// File is a printed report. Err is set when that unit failed; other units
// are unaffected.
type File struct {
	Unit     string
	Name     string
	Data     []byte
	Duration time.Duration
	Err      error
}

// FileName builds the download name for unit, replacing path separators and
// other characters that are unsafe in file names.
func FileName(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = "report"
	}
	unit = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, unit)
	return unit + FileSuffix
}

// Batch prints many jobs with at most Workers conversions in flight.
type Batch struct {
	conv    Converter
	workers int
	log     *logger.Logger
}

func NewBatch(conv Converter, workers int, log *logger.Logger) *Batch {
	if workers <= 0 {
		workers = 2
	}
	return &Batch{conv: conv, workers: workers, log: log.WithComponent("pdf")}
}

// RenderAll converts jobs and returns files in job order. A failing unit is
// reported in its File; only ctx cancellation aborts the batch.
func (b *Batch) RenderAll(ctx context.Context, jobs []Job) ([]File, error) {
	files := make([]File, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			data, err := b.conv.Convert(gctx, job.HTML)
			f := File{Unit: job.Unit, Name: FileName(job.Unit), Data: data, Duration: time.Since(start), Err: err}
			log := b.log.WithField("unit", job.Unit).WithField("duration_ms", f.Duration.Milliseconds())
			if err != nil {
				log.WithError(err).Warn("pdf conversion failed")
			} else {
				log.WithField("bytes", len(data)).Info("pdf ready")
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render pdfs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render pdfs: %w", err)
	}
	return files, nil
}

// Bundle writes the successful files into one zip archive. Duplicate names
// get a numeric suffix.
func Bundle(w io.Writer, files []File) (int, error) {
	zw := zip.NewWriter(w)
	used := map[string]int{}
	n := 0
	for _, f := range files {
		if f.Err != nil || len(f.Data) == 0 {
			continue
		}
		name := f.Name
		if c := used[f.Name]; c > 0 {
			name = fmt.Sprintf("%s(%d)%s", strings.TrimSuffix(f.Name, ".pdf"), c, ".pdf")
		}
		used[f.Name]++
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return n, fmt.Errorf("zip %s: %w", name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return n, fmt.Errorf("zip %s: %w", name, err)
		}
		n++
	}
	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("close zip: %w", err)
	}
	return n, nil
}
