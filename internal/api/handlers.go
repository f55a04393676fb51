package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/report"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
)

// Handler serves results straight from the store on every request.
type Handler struct {
	store     resultstore.Reader
	version   string
	startedAt time.Time
}

// NewHandler creates a Handler.
func NewHandler(store resultstore.Reader, version string) *Handler {
	return &Handler{store: store, version: version, startedAt: time.Now()}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "domain-checker",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// ListDomains returns every record, optionally filtered by ?status=.
func (h *Handler) ListDomains(c *gin.Context) {
	records, ok := h.snapshot(c)
	if !ok {
		return
	}

	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records = records.WithStatus(st)
	}
	if records == nil {
		records = domain.Records{}
	}

	c.JSON(http.StatusOK, gin.H{
		"domains": records,
		"count":   len(records),
	})
}

// GetDomain returns the record for one domain. The path value is normalized first.
func (h *Handler) GetDomain(c *gin.Context) {
	name, err := domain.Normalize(strings.TrimPrefix(c.Param("domain"), "/"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, ok := h.snapshot(c)
	if !ok {
		return
	}
	rec, ok := records.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "domain not found", "domain": name})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Summary returns counts per status.
func (h *Handler) Summary(c *gin.Context) {
	records, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    len(records),
		"statuses": report.Summarize(records),
	})
}

// snapshot reads the store, answering 500 when it cannot be read.
func (h *Handler) snapshot(c *gin.Context) (domain.Records, bool) {
	records, err := h.store.Snapshot(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "result store unavailable"})
		return nil, false
	}
	return records, true
}
