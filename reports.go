package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/middlewares"
	"bitbucket.org/consolelogwin/veritas_backend/models"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
	"github.com/gin-gonic/gin"
)

// maxReportFileSize caps uploads at 50MB.
const maxReportFileSize = 50 << 20

// currentUser rebuilds the caller from the validated token claims.
func currentUser(c *gin.Context) *models.User {
	claims := middlewares.CtxValue(c.Request.Context())
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:           claims.ID,
		Name:         claims.Name,
		Role:         models.UserRole(claims.Role),
		EntityAccess: claims.EntityAccess,
	}
}

// respondError maps the workflow's error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var authErr *utils.AuthorizationError
	var stateErr *utils.StateError
	var conflictErr *utils.ConflictError
	var inputErr *utils.InputError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, gin.H{"error": authErr.Error()})
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error()})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	default:
		config.LogError(config.GetLogger(), "reports.go", "respondError", "unhandled", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func submitReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		entityCode := strings.TrimSpace(c.PostForm("entity_code"))
		reportType := strings.TrimSpace(c.PostForm("report_type"))
		if entityCode == "" || reportType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entity_code and report_type are required"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxReportFileSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 50MB limit"})
			return
		}
		if !utils.IsSpreadsheetFilename(fileHeader.Filename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx and .xls files are accepted"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxReportFileSize+1))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(data) > maxReportFileSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 50MB limit"})
			return
		}

		report, err := app.reports.Submit(c.Request.Context(), user, entityCode, models.ReportKind(reportType), fileHeader.Filename, data)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, report)
	}
}

func listReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		filter := models.ReportFilter{}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter.Status = models.ReportStatus(status)
			if !filter.Status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + status})
				return
			}
		}
		if kind := strings.TrimSpace(c.Query("report_type")); kind != "" {
			filter.Kind = models.ReportKind(kind)
			if !filter.Kind.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown report type " + kind})
				return
			}
		}
		if code := strings.TrimSpace(c.Query("entity_code")); code != "" {
			filter.EntityCodes = []string{code}
		}
		if limit := strings.TrimSpace(c.Query("limit")); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			filter.Limit = n
		}

		reports, err := app.reports.List(c.Request.Context(), user, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": reports})
	}
}

func getReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		report, err := app.reports.Get(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

type reviewRequest struct {
	Comment string `json:"comment"`
}

func approveReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var req reviewRequest
		// Body is optional for approvals.
		_ = c.ShouldBindJSON(&req)

		report, err := app.reports.Approve(c.Request.Context(), user, c.Param("id"), req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func rejectReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		report, err := app.reports.Reject(c.Request.Context(), user, c.Param("id"), req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func reportAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		// Read scope applies: a submitter sees the trail of their own
		// entity's reports, a supervisor sees everything.
		report, err := app.reports.Get(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		records, err := app.store.ListAuditRecords(c.Request.Context(), report.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"audit": records})
	}
}

func listEntitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entities, err := app.store.ListEntities(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entities": entities})
	}
}
