package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/codeclash-dev/DuelWssManagerService/internal/rating"
	"github.com/codeclash-dev/DuelWssManagerService/internal/repo"
	"github.com/codeclash-dev/DuelWssManagerService/internal/session"
	"github.com/gin-gonic/gin"
)

// API exposes the read-side HTTP endpoints next to the websocket transport.
type API struct {
	Ratings  *rating.RedisStore
	Matches  *repo.PSQLRepository
	Registry *session.Registry
}

func (a *API) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", a.Health)
	api := r.Group("/api")
	api.GET("/ratings/:userId", a.GetRating)
	api.GET("/leaderboard", a.GetLeaderboard)
	api.GET("/matches/:userId", a.GetMatchHistory)
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"liveSessions": a.Registry.Count(),
	})
}

func (a *API) GetRating(c *gin.Context) {
	userID := c.Param("userId")
	record, err := a.Ratings.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, rating.ErrNoRecord) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rating record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": record})
}

func (a *API) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := a.Ratings.TopRatings(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": entries})
}

func (a *API) GetMatchHistory(c *gin.Context) {
	userID := c.Param("userId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := a.Matches.MatchesByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": records})
}
