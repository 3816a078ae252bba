package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ipo-report-go/internal/store"
)

func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func limitParam(c *gin.Context) int {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	return n
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.store.Stats(c.Request.Context())
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type organizationBody struct {
	Name         string `json:"name" binding:"required"`
	Industry     string `json:"industry"`
	ContactEmail string `json:"contact_email"`
}

func (s *Server) listOrganizations(c *gin.Context) {
	orgs, err := s.store.ListOrganizations(c.Request.Context())
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

func (s *Server) createOrganization(c *gin.Context) {
	var body organizationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	o, err := s.store.CreateOrganization(c.Request.Context(), store.Organization{Name: body.Name, Industry: body.Industry, ContactEmail: body.ContactEmail})
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) getOrganization(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	o, err := s.store.GetOrganization(c.Request.Context(), id)
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) updateOrganization(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body organizationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	o, err := s.store.UpdateOrganization(c.Request.Context(), store.Organization{ID: id, Name: body.Name, Industry: body.Industry, ContactEmail: body.ContactEmail})
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) deleteOrganization(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.store.DeleteOrganization(c.Request.Context(), id); err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

type brandingBody struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	FontFamily     string `json:"font_family"`
	CustomCSS      string `json:"custom_css"`
	// LogoBase64 carries the raw image bytes.
	LogoBase64 string `json:"logo_base64"`
}

func (s *Server) getBranding(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	b, err := s.store.GetBranding(c.Request.Context(), id)
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branding": b, "has_logo": len(b.Logo) > 0})
}

func (s *Server) putBranding(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body brandingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	b := store.Branding{
		OrganizationID: id,
		PrimaryColor:   body.PrimaryColor,
		SecondaryColor: body.SecondaryColor,
		AccentColor:    body.AccentColor,
		FontFamily:     body.FontFamily,
		CustomCSS:      body.CustomCSS,
	}
	if body.LogoBase64 != "" {
		logo, err := base64.StdEncoding.DecodeString(body.LogoBase64)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("logo_base64: %w", err))
			return
		}
		b.Logo = logo
	}
	saved, err := s.store.UpsertBranding(c.Request.Context(), b)
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branding": saved, "has_logo": len(saved.Logo) > 0})
}

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.store.ListReports(c.Request.Context(), limitParam(c))
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) pdfLogs(c *gin.Context) {
	logs, err := s.store.ListPDFGenerations(c.Request.Context(), limitParam(c))
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) emailLogs(c *gin.Context) {
	logs, err := s.store.ListEmailLogs(c.Request.Context(), limitParam(c))
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// cleanup deletes data older than ?days (default: the configured retention).
func (s *Server) cleanup(c *gin.Context) {
	age := s.cfg.Retention()
	if d := c.Query("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, fmt.Errorf("invalid days %q", d))
			return
		}
		age = time.Duration(n) * 24 * time.Hour
	}
	if age <= 0 {
		fail(c, http.StatusBadRequest, errors.New("retention is disabled; pass ?days"))
		return
	}
	n, err := s.store.CleanOldData(c.Request.Context(), age)
	if err != nil {
		fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) export(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=ipo-report-admin.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := s.store.ExportWorkbook(c.Request.Context(), c.Writer); err != nil {
		_ = c.Error(err)
	}
}
