package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adnfaris/tripdana/internal/models"
)

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleListMembers(c *gin.Context) {
	members, err := s.members.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(members))
	for _, m := range members {
		out = append(out, memberJSON(m))
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

func (s *Server) handleInviteMember(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Role  string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	member, err := s.members.Invite(c.Request.Context(), currentUser(c), c.Param("id"),
		req.Email, models.MemberRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": gin.H{
		"id":      member.ID,
		"user_id": member.UserID,
		"role":    member.Role,
		"status":  member.Status,
	}})
}

func (s *Server) handleAcceptInvitation(c *gin.Context) {
	member, err := s.members.Accept(c.Request.Context(), currentUser(c), c.Param("id"), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": gin.H{
		"id":        member.ID,
		"role":      member.Role,
		"status":    member.Status,
		"joined_at": member.JoinedAt,
	}})
}

func (s *Server) handleDeclineInvitation(c *gin.Context) {
	if err := s.members.Decline(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}

func (s *Server) handleUpdateMemberRole(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Param("memberId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	member, err := s.members.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"),
		memberID, models.MemberRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": gin.H{
		"id":     member.ID,
		"role":   member.Role,
		"status": member.Status,
	}})
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Param("memberId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	if err := s.members.Remove(c.Request.Context(), currentUser(c), c.Param("id"), memberID, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) handleLeaveTrip(c *gin.Context) {
	if err := s.members.Leave(c.Request.Context(), currentUser(c), c.Param("id"), requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}
