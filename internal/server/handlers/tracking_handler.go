package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/domain/models"
	"github.com/mamadbah2/tracklog/internal/service/export"
	"github.com/mamadbah2/tracklog/internal/service/tracking"
)

// NoticeNothingToExport is shown when an export is requested for an empty view.
const NoticeNothingToExport = "No tracking data to export."

// Exporter builds workbooks from a view.
type Exporter interface {
	Export(ctx context.Context, counts []models.InventoryCount) (export.Snapshot, error)
}

// TrackingHandler serves the tracking log table and its row actions.
type TrackingHandler struct {
	ctrl     *tracking.Controller
	exporter Exporter
	catalog  models.Catalog
	logger   *zap.Logger
}

// NewTrackingHandler constructs the HTTP handler adapter.
func NewTrackingHandler(ctrl *tracking.Controller, exporter Exporter, catalog models.Catalog, logger *zap.Logger) *TrackingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingHandler{ctrl: ctrl, exporter: exporter, catalog: catalog, logger: logger}
}

// Page renders the filtered tracking log.
func (h *TrackingHandler) Page(c *gin.Context) {
	p := h.predicates(c)

	categories := make([]tracking.Option, 0, len(h.catalog.Categories))
	for _, category := range h.catalog.Categories {
		categories = append(categories, tracking.Option{Value: category, Selected: category == p.Category})
	}

	c.HTML(http.StatusOK, "tracking", gin.H{
		"Columns":    tracking.Columns,
		"Rows":       h.ctrl.Rows(p),
		"Filter":     p,
		"Categories": categories,
		"Notice":     c.Query("notice"),
		"ExportURL":  template.URL("/export?" + filterQuery(p).Encode()),
	})
}

// List returns the active view as JSON.
func (h *TrackingHandler) List(c *gin.Context) {
	p := h.predicates(c)
	view := h.ctrl.View(p)

	c.JSON(http.StatusOK, gin.H{
		"filter":  p,
		"records": tracking.Entries(view),
		"count":   len(view),
		"total":   len(h.ctrl.All()),
	})
}

// Edit moves a row into edit mode.
func (h *TrackingHandler) Edit(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.ctrl.BeginEdit(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to begin edit", id, err)
		return
	}
	h.backToList(c, "")
}

// Save commits the posted values of an edited row.
func (h *TrackingHandler) Save(c *gin.Context) {
	id := c.Param("id")
	draft := models.Draft{
		Location:      c.PostForm("location"),
		UnitOfMeasure: c.PostForm("uom"),
		Quantity:      models.ParseQuantity(c.PostForm("quantity")),
		Notes:         c.PostForm("notes"),
	}

	if err := h.ctrl.Save(c.Request.Context(), id, draft); err != nil {
		h.fail(c, "failed to save edit", id, err)
		return
	}
	h.backToList(c, "")
}

// Cancel discards the pending edit of a row.
func (h *TrackingHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.ctrl.Cancel(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to cancel edit", id, err)
		return
	}
	h.backToList(c, "")
}

// Delete removes a row. The request must carry confirm=yes.
func (h *TrackingHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	confirmed := c.PostForm("confirm") == "yes"

	if _, err := h.ctrl.Delete(c.Request.Context(), id, confirmed); err != nil {
		h.fail(c, "failed to delete entry", id, err)
		return
	}
	h.backToList(c, "")
}

// Export downloads the filtered view as a workbook.
func (h *TrackingHandler) Export(c *gin.Context) {
	p := h.predicates(c)

	snap, err := h.exporter.Export(c.Request.Context(), h.ctrl.View(p))
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			h.backToList(c, NoticeNothingToExport)
			return
		}
		h.logger.Error("failed to export tracking log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.FileName))
	c.Data(http.StatusOK, export.ContentType, snap.Data)
}

// Events streams a "reload" event each time the tracking log is reloaded.
func (h *TrackingHandler) Events(c *gin.Context) {
	// the stream outlives the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	changes, release := h.ctrl.Subscribe()
	defer release()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case _, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("reload", time.Now().UnixMilli())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *TrackingHandler) predicates(c *gin.Context) models.Predicates {
	var p models.Predicates
	if err := c.ShouldBind(&p); err != nil {
		h.logger.Debug("ignoring malformed filter", zap.Error(err))
		return models.Predicates{}
	}
	return p
}

func (h *TrackingHandler) fail(c *gin.Context, msg, id string, err error) {
	switch {
	case errors.Is(err, tracking.ErrRecordNotFound):
		h.logger.Warn(msg, zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
	case errors.Is(err, tracking.ErrNotEditing):
		h.logger.Warn(msg, zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "entry is not being edited"})
	default:
		h.logger.Error(msg, zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// backToList redirects to the table, keeping the active filter.
func (h *TrackingHandler) backToList(c *gin.Context, notice string) {
	q := filterQuery(h.predicates(c))
	if notice != "" {
		q.Set("notice", notice)
	}

	target := "/"
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	c.Redirect(http.StatusSeeOther, target)
}

func filterQuery(p models.Predicates) url.Values {
	q := url.Values{}
	for key, value := range map[string]string{
		"tag":         p.Tag,
		"category":    p.Category,
		"part":        p.PartNumber,
		"description": p.Description,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q
}
