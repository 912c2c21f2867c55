package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adnfaris/tripdana/internal/gateway"
	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/service"
)

func (s *Server) handleCreateSavings(c *gin.Context) {
	var req struct {
		Amount float64 `json:"amount" binding:"required"`
		Method string  `json:"method" binding:"required"`
		Bank   string  `json:"bank"`
		Notes  string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sv, err := s.savings.Create(c.Request.Context(), currentUser(c), c.Param("id"), service.CreateSavingsInput{
		Amount: req.Amount,
		Method: models.PaymentMethod(req.Method),
		Bank:   req.Bank,
		Notes:  req.Notes,
	}, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"savings": savingsJSON(sv)})
}

func (s *Server) handleListSavings(c *gin.Context) {
	list, err := s.savings.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, sv := range list {
		out = append(out, savingsJSON(sv))
	}
	c.JSON(http.StatusOK, gin.H{"savings": out})
}

func (s *Server) handleGetSavings(c *gin.Context) {
	sv, err := s.savings.Get(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("savingsId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savings": savingsJSON(sv)})
}

func (s *Server) handleContributions(c *gin.Context) {
	contribs, err := s.savings.Contributions(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(contribs))
	for _, cb := range contribs {
		out = append(out, gin.H{"user_id": cb.UserID, "total": cb.Total})
	}
	c.JSON(http.StatusOK, gin.H{"contributions": out})
}

// handleCheckPaymentStatus polls the gateway for a pending payment.
func (s *Server) handleCheckPaymentStatus(c *gin.Context) {
	sv, err := s.savings.CheckStatus(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("savingsId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savings": savingsJSON(sv)})
}

// handleApproveSavings confirms a member-reported manual payment.
func (s *Server) handleApproveSavings(c *gin.Context) {
	sv, err := s.savings.Approve(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("savingsId"), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savings": savingsJSON(sv)})
}

// handleMidtransNotification receives gateway webhooks. It always answers
// 200 for processed notifications, including replays against settled
// payments, so the gateway stops retrying.
func (s *Server) handleMidtransNotification(c *gin.Context) {
	var n gateway.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification body"})
		return
	}

	if _, err := s.savings.HandleNotification(c.Request.Context(), &n); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
