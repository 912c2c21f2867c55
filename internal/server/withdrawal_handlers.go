package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adnfaris/tripdana/internal/service"
)

func (s *Server) handleCreateWithdrawal(c *gin.Context) {
	var req struct {
		Amount      float64 `json:"amount" binding:"required"`
		Reason      string  `json:"reason" binding:"required"`
		Description string  `json:"description"`
		VotingDays  int     `json:"voting_days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	w, err := s.withdrawals.Create(c.Request.Context(), currentUser(c), c.Param("id"), service.CreateWithdrawalInput{
		Amount:      req.Amount,
		Reason:      req.Reason,
		Description: req.Description,
		VotingDays:  req.VotingDays,
	}, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawalJSON(w, time.Now())})
}

func (s *Server) handleListWithdrawals(c *gin.Context) {
	list, err := s.withdrawals.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(list))
	for _, w := range list {
		out = append(out, withdrawalJSON(w, now))
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": out})
}

func (s *Server) handleListVotes(c *gin.Context) {
	votes, err := s.withdrawals.Votes(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("wid"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(votes))
	for _, v := range votes {
		out = append(out, voteJSON(v))
	}
	c.JSON(http.StatusOK, gin.H{"votes": out})
}

func (s *Server) handleCastVote(c *gin.Context) {
	var req struct {
		Approved *bool  `json:"approved" binding:"required"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	w, err := s.withdrawals.Vote(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("wid"),
		*req.Approved, req.Comment, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawalJSON(w, time.Now())})
}

func (s *Server) handleCancelWithdrawal(c *gin.Context) {
	w, err := s.withdrawals.Cancel(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("wid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawalJSON(w, time.Now())})
}

func (s *Server) handleCompleteWithdrawal(c *gin.Context) {
	w, err := s.withdrawals.Complete(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("wid"), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawalJSON(w, time.Now())})
}
