package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

const (
	userIDKey   = "userID"
	courseIDKey = "courseID"
)

type handlers struct {
	engine  *gamification.Engine
	courses *gamification.CourseService
	log     *logger.Logger
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil || id == uuid.Nil {
		respondError(c, badRequest(fmt.Errorf("%s must be a uuid", param)))
		return uuid.Nil, false
	}
	return id, true
}

func userParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, userIDKey)
		if !ok {
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func courseParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, courseIDKey)
		if !ok {
			return
		}
		c.Set(courseIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) uuid.UUID   { return c.MustGet(userIDKey).(uuid.UUID) }
func courseID(c *gin.Context) uuid.UUID { return c.MustGet(courseIDKey).(uuid.UUID) }

func (h *handlers) levels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.engine.Levels().Levels()})
}

func (h *handlers) progression(c *gin.Context) {
	view, err := h.engine.FetchProgression(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) stats(c *gin.Context) {
	stats, err := h.engine.FetchStats(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) activities(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, badRequest(fmt.Errorf("limit must be a non-negative integer")))
			return
		}
		limit = n
	}
	list, err := h.engine.ListActivities(c.Request.Context(), userID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": list})
}

type awardRequest struct {
	Amount       int    `json:"amount" binding:"required"`
	ActivityType string `json:"activityType" binding:"required"`
	Description  string `json:"description" binding:"required"`
}

func (h *handlers) awardXP(c *gin.Context) {
	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	res, err := h.engine.AwardDirectXP(c.Request.Context(), userID(c), req.Amount, gamification.ActivityType(req.ActivityType), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) recompute(c *gin.Context) {
	p, err := h.engine.Recompute(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) listCourses(c *gin.Context) {
	list, err := h.courses.ListCourses(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": list})
}

func (h *handlers) startCourse(c *gin.Context) {
	res, err := h.courses.StartCourse(c.Request.Context(), userID(c), courseID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type progressRequest struct {
	ProgressPercentage *int `json:"progressPercentage" binding:"required"`
}

func (h *handlers) updateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	res, err := h.courses.UpdateProgress(c.Request.Context(), userID(c), courseID(c), *req.ProgressPercentage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// completeCourse answers 200 for both outcomes; a rejected attempt carries
// admitted=false.
func (h *handlers) completeCourse(c *gin.Context) {
	res, err := h.courses.CompleteCourse(c.Request.Context(), userID(c), courseID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
