package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/grouping"
	"ipo-report-go/internal/privacy"
	"ipo-report-go/internal/processor"
	"ipo-report-go/internal/types"
)

const previewRows = 5

var errNoIndex = errors.New("item index is required: upload one as 'index' or configure INDEX_PATH")

type generateForm struct {
	GroupColumn  string   `form:"group_column"`
	IncludeWhole bool     `form:"include_whole"`
	Interpret    bool     `form:"interpret"`
	Force        bool     `form:"force"`
	PDF          bool     `form:"pdf"`
	EmailTo      []string `form:"email_to"`
}

func (s *Server) readUpload(fh *multipart.FileHeader) (types.RawTable, error) {
	f, err := fh.Open()
	if err != nil {
		return types.RawTable{}, err
	}
	defer f.Close()
	return s.reader.ReadTable(f, fh.Filename)
}

// uploadedIndex returns the index sent with the request, or the configured one.
func (s *Server) uploadedIndex(c *gin.Context) ([]types.ItemIndexEntry, error) {
	fh, err := c.FormFile("index")
	if errors.Is(err, http.ErrMissingFile) {
		if len(s.index) == 0 {
			return nil, errNoIndex
		}
		return s.index, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.reader.ReadIndex(f, fh.Filename)
}

func (s *Server) readForm(c *gin.Context) (types.RawTable, []types.ItemIndexEntry, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("survey file: %w", err))
		return types.RawTable{}, nil, false
	}
	table, err := s.readUpload(fh)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return types.RawTable{}, nil, false
	}
	index, err := s.uploadedIndex(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return types.RawTable{}, nil, false
	}
	return table, index, true
}

// inspectUpload summarizes an upload before generation: column kinds,
// validation, suggested grouping columns and a masked preview.
func (s *Server) inspectUpload(c *gin.Context) {
	table, index, ok := s.readForm(c)
	if !ok {
		return
	}
	opts := s.cfg.ReportOptions()
	c.JSON(http.StatusOK, gin.H{
		"summary":    dataset.Summarize(table, index, opts.Scoring.Normalizer, opts.Scoring.ObjectiveRatio),
		"candidates": grouping.CandidateColumns(table),
		"preview":    privacy.Preview(table, previewRows),
	})
}

type runView struct {
	*processor.Result
	Links map[string]string `json:"links"`
}

func view(res *processor.Result) runView {
	base := "/api/reports/" + res.RunID
	links := map[string]string{"self": base}
	if len(res.Bundle) > 0 {
		links["zip"] = base + "/zip"
	}
	for _, u := range res.Units {
		unit := url.PathEscape(u.Record.UnitName)
		links[u.Record.UnitName+".html"] = base + "/units/" + unit + "/html"
		if len(u.PDF) > 0 {
			links[u.Record.UnitName+".pdf"] = base + "/units/" + unit + "/pdf"
		}
	}
	return runView{Result: res, Links: links}
}

func (s *Server) generate(c *gin.Context) {
	var form generateForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	table, index, ok := s.readForm(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if t := s.cfg.Server.RequestTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	res, err := s.runner.Run(ctx, processor.Request{
		Table:          table,
		Index:          index,
		GroupColumn:    form.GroupColumn,
		IncludeWhole:   form.IncludeWhole,
		Interpret:      form.Interpret,
		ForceInterpret: form.Force,
		PDF:            form.PDF,
		EmailTo:        form.EmailTo,
	})
	if err != nil {
		fail(c, http.StatusServiceUnavailable, err)
		return
	}
	s.remember(res)
	c.JSON(http.StatusOK, view(res))
}

func (s *Server) run(c *gin.Context) (*processor.Result, bool) {
	res, ok := s.recall(c.Param("run"))
	if !ok {
		fail(c, http.StatusNotFound, fmt.Errorf("run %q not found or expired", c.Param("run")))
	}
	return res, ok
}

func (s *Server) unit(c *gin.Context) (processor.UnitReport, bool) {
	res, ok := s.run(c)
	if !ok {
		return processor.UnitReport{}, false
	}
	u, ok := res.Unit(c.Param("unit"))
	if !ok {
		fail(c, http.StatusNotFound, fmt.Errorf("unit %q not found", c.Param("unit")))
	}
	return u, ok
}

func (s *Server) getRun(c *gin.Context) {
	if res, ok := s.run(c); ok {
		c.JSON(http.StatusOK, view(res))
	}
}

func (s *Server) unitHTML(c *gin.Context) {
	if u, ok := s.unit(c); ok {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(u.HTML))
	}
}

func (s *Server) unitPDF(c *gin.Context) {
	u, ok := s.unit(c)
	if !ok {
		return
	}
	if len(u.PDF) == 0 {
		fail(c, http.StatusNotFound, fmt.Errorf("no pdf for unit %q", u.Record.UnitName))
		return
	}
	attachment(c, u.PDFName, "application/pdf", u.PDF)
}

func (s *Server) downloadZip(c *gin.Context) {
	res, ok := s.run(c)
	if !ok {
		return
	}
	if len(res.Bundle) == 0 {
		fail(c, http.StatusNotFound, errors.New("no zip bundle for this run"))
		return
	}
	attachment(c, res.BundleName(), "application/zip", res.Bundle)
}

// attachment sends data as a download with an RFC 5987 encoded file name.
func attachment(c *gin.Context, name, ctype string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	c.Data(http.StatusOK, ctype, data)
}
