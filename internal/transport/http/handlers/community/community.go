// Package community exposes the entity commit surface. Writes flowing
// through these endpoints drive the change detector and the notification
// publisher.
package community

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	communityDomain "nestnotify/internal/core/domain/community"
	"nestnotify/internal/services"
)

// Handler handles community entity endpoints.
type Handler struct {
	service *services.CommunityService
	logger  *logrus.Logger
}

// NewHandler creates a new community handler.
func NewHandler(service *services.CommunityService, logger *logrus.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// ChapterRequest is the chapter create/update payload.
type ChapterRequest struct {
	Name              string `json:"name" binding:"required"`
	Country           string `json:"country"`
	Region            string `json:"region"`
	SuggestedLocation string `json:"suggested_location"`
	Description       string `json:"description"`
}

// EventRequest is the event create/update payload. Dates use YYYY-MM-DD.
type EventRequest struct {
	Name              string `json:"name" binding:"required"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	SuggestedLocation string `json:"suggested_location"`
	URL               string `json:"url"`
	Description       string `json:"description"`
}

// SnapshotRequest is the snapshot create payload.
type SnapshotRequest struct {
	Key   string `json:"key" binding:"required"`
	Title string `json:"title" binding:"required"`
}

// CreateChapter handles POST /chapters
func (h *Handler) CreateChapter(c *gin.Context) {
	var req ChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chapter := &communityDomain.Chapter{
		Name:              req.Name,
		Country:           req.Country,
		Region:            req.Region,
		SuggestedLocation: req.SuggestedLocation,
		Description:       req.Description,
	}
	if err := h.service.CreateChapter(c.Request.Context(), chapter); err != nil {
		h.logger.WithError(err).Error("Failed to create chapter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chapter"})
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

// UpdateChapter handles PUT /chapters/:id
func (h *Handler) UpdateChapter(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chapter id"})
		return
	}

	var req ChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chapter := &communityDomain.Chapter{
		ID:                id,
		Name:              req.Name,
		Country:           req.Country,
		Region:            req.Region,
		SuggestedLocation: req.SuggestedLocation,
		Description:       req.Description,
	}
	if err := h.service.UpdateChapter(c.Request.Context(), chapter); err != nil {
		h.logger.WithError(err).Error("Failed to update chapter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update chapter"})
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := eventFromRequest(0, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.CreateEvent(c.Request.Context(), event); err != nil {
		h.logger.WithError(err).Error("Failed to create event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create event"})
		return
	}
	c.JSON(http.StatusCreated, event)
}

// UpdateEvent handles PUT /events/:id
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := eventFromRequest(id, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdateEvent(c.Request.Context(), event); err != nil {
		h.logger.WithError(err).Error("Failed to update event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update event"})
		return
	}
	c.JSON(http.StatusOK, event)
}

// CreateSnapshot handles POST /snapshots
func (h *Handler) CreateSnapshot(c *gin.Context) {
	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot := &communityDomain.Snapshot{
		Key:   req.Key,
		Title: req.Title,
	}
	if err := h.service.CreateSnapshot(c.Request.Context(), snapshot); err != nil {
		h.logger.WithError(err).Error("Failed to create snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create snapshot"})
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

// PublishSnapshot handles POST /snapshots/:id/publish
func (h *Handler) PublishSnapshot(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot id"})
		return
	}

	snapshot, err := h.service.PublishSnapshot(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, communityDomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to publish snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish snapshot"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func eventFromRequest(id int64, req EventRequest) (*communityDomain.Event, error) {
	event := &communityDomain.Event{
		ID:                id,
		Name:              req.Name,
		SuggestedLocation: req.SuggestedLocation,
		URL:               req.URL,
		Description:       req.Description,
	}

	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, errors.New("start_date must be YYYY-MM-DD")
		}
		d := communityDomain.DateOf(t)
		event.StartDate = &d
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, errors.New("end_date must be YYYY-MM-DD")
		}
		d := communityDomain.DateOf(t)
		event.EndDate = &d
	}
	return event, nil
}
