package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zen-systems/tripmate/pkg/chat"
	"github.com/zen-systems/tripmate/pkg/plan"
)

type planView struct {
	plan.Plan
	Locked bool `json:"locked"`
}

func (s *Server) postChat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if !s.allow(req.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}
	c.JSON(http.StatusOK, s.handler.Handle(c.Request.Context(), req))
}

func (s *Server) allow(userID string) bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow(userID)
}

func (s *Server) loadPlans(c *gin.Context) ([]plan.Plan, bool) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return nil, false
	}
	plans, err := s.plans.ListPlans(c.Request.Context(), userID, c.Param("tripId"))
	if err != nil {
		s.logger("[server] list plans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load plans"})
		return nil, false
	}
	return plans, true
}

func (s *Server) getPlans(c *gin.Context) {
	plans, ok := s.loadPlans(c)
	if !ok {
		return
	}
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{Plan: p, Locked: p.Locked()})
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getCalendar(c *gin.Context) {
	plans, ok := s.loadPlans(c)
	if !ok {
		return
	}
	tripID := c.Param("tripId")
	name := "Trip " + tripID
	if trip, err := s.plans.Trip(c.Request.Context(), tripID); err == nil {
		name = "Trip " + trip.StartDate + " ~ " + trip.EndDate
	} else if !errors.Is(err, plan.ErrTripNotFound) {
		s.logger("[server] load trip %s: %v", tripID, err)
	}

	out, err := plan.ExportICS(name, plans, s.zones, s.now())
	if err != nil {
		s.logger("[server] export calendar: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not export calendar"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+tripID+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(out))
}
