package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/service"
)

type tripRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Destination  string  `json:"destination"`
	StartDate    int64   `json:"start_date"`
	EndDate      int64   `json:"end_date"`
	TargetAmount float64 `json:"target_amount"`
	Status       string  `json:"status"`
}

func (r tripRequest) input() service.TripInput {
	return service.TripInput{
		Name:         r.Name,
		Description:  r.Description,
		Destination:  r.Destination,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		TargetAmount: r.TargetAmount,
		Status:       models.TripStatus(r.Status),
	}
}

func (s *Server) handleCreateTrip(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	trip, err := s.trips.Create(c.Request.Context(), currentUser(c), req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": tripJSON(trip)})
}

func (s *Server) handleGetTrip(c *gin.Context) {
	view, err := s.trips.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": tripViewJSON(view)})
}

func (s *Server) handleListTrips(c *gin.Context) {
	trips, err := s.trips.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"trips": out})
}

func (s *Server) handleListInvitations(c *gin.Context) {
	trips, err := s.trips.Invitations(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": out})
}

func (s *Server) handleUpdateTrip(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	trip, err := s.trips.Update(c.Request.Context(), currentUser(c), c.Param("id"), req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": tripJSON(trip)})
}

func (s *Server) handleDeleteTrip(c *gin.Context) {
	if err := s.trips.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleJoinByCode(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	trip, err := s.trips.JoinByCode(c.Request.Context(), currentUser(c), req.Code, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": tripJSON(trip)})
}

func (s *Server) handleRegenerateJoinCode(c *gin.Context) {
	trip, err := s.trips.RegenerateJoinCode(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"join_code": trip.JoinCode})
}

func (s *Server) handleListAudit(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		// Bad limits fall back to the default rather than erroring.
		limit = atoiOrZero(v)
	}

	entries, err := s.audit.List(c.Request.Context(), currentUser(c), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, a := range entries {
		out = append(out, auditJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{"audit": out})
}
