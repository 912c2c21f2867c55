package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adnfaris/tripdana/internal/service"
)

func (s *Server) handleCreateExpense(c *gin.Context) {
	var req struct {
		Amount      float64 `json:"amount" binding:"required"`
		Category    string  `json:"category"`
		Description string  `json:"description" binding:"required"`
		SpentAt     int64   `json:"spent_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	e, err := s.expenses.Create(c.Request.Context(), currentUser(c), c.Param("id"), service.ExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		SpentAt:     req.SpentAt,
	}, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": expenseJSON(e)})
}

func (s *Server) handleListExpenses(c *gin.Context) {
	list, err := s.expenses.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, e := range list {
		out = append(out, expenseJSON(e))
	}
	c.JSON(http.StatusOK, gin.H{"expenses": out})
}

func (s *Server) handleDeleteExpense(c *gin.Context) {
	if err := s.expenses.Delete(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("expenseId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type destinationRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Location      string  `json:"location"`
	LocationURL   string  `json:"location_url"`
	VisitDate     int64   `json:"visit_date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Order         int     `json:"order"`
	EstimatedCost float64 `json:"estimated_cost"`
	Category      string  `json:"category"`
}

func (r destinationRequest) input() service.DestinationInput {
	return service.DestinationInput{
		Name:          r.Name,
		Description:   r.Description,
		Location:      r.Location,
		LocationURL:   r.LocationURL,
		VisitDate:     r.VisitDate,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Order:         r.Order,
		EstimatedCost: r.EstimatedCost,
		Category:      r.Category,
	}
}

func (s *Server) handleCreateDestination(c *gin.Context) {
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	d, err := s.destinations.Create(c.Request.Context(), currentUser(c), c.Param("id"), req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"destination": destinationJSON(d)})
}

func (s *Server) handleListDestinations(c *gin.Context) {
	list, err := s.destinations.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, d := range list {
		out = append(out, destinationJSON(d))
	}
	c.JSON(http.StatusOK, gin.H{"destinations": out})
}

func (s *Server) handleUpdateDestination(c *gin.Context) {
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	d, err := s.destinations.Update(c.Request.Context(), currentUser(c), c.Param("id"),
		c.Param("destinationId"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": destinationJSON(d)})
}

func (s *Server) handleDeleteDestination(c *gin.Context) {
	if err := s.destinations.Delete(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("destinationId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
