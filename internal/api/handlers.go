package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/middleware"
	"github.com/emergency-assist/hospital-recommender/internal/service"
)

var exportContentTypes = map[string]string{
	"json": "application/json",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type statusUpdateRequest struct {
	Status domain.AlertStatus `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	}
	if s.catalog != nil {
		body["catalog_breaker"] = s.catalog.BreakerState()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleClassify(c *gin.Context) {
	var report domain.SymptomReport
	if err := c.ShouldBindJSON(&report); err != nil {
		s.respondBindError(c, err)
		return
	}

	analysis, err := s.recommender.Classify(report.FreeText)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req service.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	if s.config.Auth.Enabled {
		// Audit records are owned by the token subject, never by a body field.
		req.UserID = middleware.UserID(c)
	}

	resp, err := s.recommender.Recommend(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListHospitals(c *gin.Context) {
	providers, err := s.recommender.ListProviders(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hospitals": providers,
		"count":     len(providers),
	})
}

func (s *Server) handleGetHospital(c *gin.Context) {
	provider, err := s.recommender.GetProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (s *Server) handleCreateAlert(c *gin.Context) {
	var params service.CreateAlertParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBindError(c, err)
		return
	}
	params.UserID = callerID(c, params.UserID)

	alert, err := s.alerts.Create(c.Request.Context(), &params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, domain.NewValidationError("limit", "limit must be an integer", raw))
			return
		}
		limit = n
	}

	alerts, err := s.alerts.ListByUser(c.Request.Context(), callerID(c, c.Query("user_id")), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleGetAlert(c *gin.Context) {
	alert, err := s.alerts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ownedByCaller(c, alert) {
		s.respondError(c, fmt.Errorf("alert %s: %w", alert.ID, domain.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (s *Server) handleUpdateAlertStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if middleware.UserID(c) != "" {
		existing, err := s.alerts.Get(ctx, c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		if !ownedByCaller(c, existing) {
			s.respondError(c, fmt.Errorf("alert %s: %w", existing.ID, domain.ErrNotFound))
			return
		}
	}

	alert, err := s.alerts.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (s *Server) handleExportAlerts(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if !s.alerts.SupportsExport(format) {
		s.respondError(c, domain.NewValidationError("format", domain.ErrUnsupportedExportFmt.Error(), format))
		return
	}

	var buf bytes.Buffer
	if err := s.alerts.Export(c.Request.Context(), &buf, callerID(c, c.Query("user_id")), format); err != nil {
		s.respondError(c, err)
		return
	}

	contentType, ok := exportContentTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	filename := fmt.Sprintf("alerts-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// callerID prefers the authenticated subject over a client supplied id.
func callerID(c *gin.Context, supplied string) string {
	if id := middleware.UserID(c); id != "" {
		return id
	}
	return supplied
}

func ownedByCaller(c *gin.Context, alert *domain.EmergencyAlert) bool {
	id := middleware.UserID(c)
	return id == "" || id == alert.UserID
}
