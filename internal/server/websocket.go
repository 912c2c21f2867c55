package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleTripSocket subscribes an active trip member to the trip's private
// event channel. Membership is checked before the connection is upgraded.
func (s *Server) handleTripSocket(c *gin.Context) {
	tripID := c.Param("id")
	user := currentUser(c)

	member, err := s.store.GetMember(c.Request.Context(), tripID, user.ID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && member.Status != models.MemberActive) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not an active member of this trip"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "trip_id", tripID, "error", err)
		return
	}

	slog.Debug("Realtime subscriber connected", "trip_id", tripID, "user_id", user.ID)
	s.hub.Subscribe(tripID, conn)
}
