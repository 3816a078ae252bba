package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/grouping"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/types"
)

// Builder runs grouping and assembly for one upload.
type Builder struct {
	opts Options
	log  *logger.Logger
}

func NewBuilder(opts Options, log *logger.Logger) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Builder{opts: opts, log: log.WithComponent("report.builder")}
}

// Build is the outcome of BuildAll. Records follow the grouper's order.
type Build struct {
	Records      []types.ReportRecord
	Grouping     grouping.Result
	Organization dataset.Organization
}

// BuildAll partitions table by groupColumn (whole organization when empty)
// and assembles every unit. Only cancellation of ctx makes it fail.
func (b *Builder) BuildAll(ctx context.Context, table types.RawTable, index []types.ItemIndexEntry, groupColumn string) (Build, error) {
	org := dataset.DetectOrganization(table)
	var res grouping.Result
	if groupColumn == "" {
		res = grouping.Whole(table)
	} else {
		res = grouping.ByColumn(table, groupColumn, b.opts.MinGroupSize)
	}
	for _, w := range res.Warnings {
		b.log.WithField("group_column", groupColumn).Warn(w)
	}

	records := make([]types.ReportRecord, len(res.Groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, grp := range res.Groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			unit := Unit{Name: grp.Name, IsTotal: grp.Whole}
			records[i] = Assemble(grp.Table, index, unit, org, b.opts)
			b.log.WithField("unit", grp.Name).WithField("respondents", grp.Table.Len()).Debug("unit assembled")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Build{}, fmt.Errorf("build reports: %w", err)
	}
	b.log.WithField("units", len(records)).WithField("fallback", res.Fallback).Info("reports built")
	return Build{Records: records, Grouping: res, Organization: org}, nil
}
