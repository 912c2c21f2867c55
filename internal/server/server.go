// Package server exposes the HTTP API: REST endpoints under /api, the
// payment gateway webhook, per-trip WebSocket channels and the operational
// endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adnfaris/tripdana/internal/auth"
	"github.com/adnfaris/tripdana/internal/config"
	"github.com/adnfaris/tripdana/internal/realtime"
	"github.com/adnfaris/tripdana/internal/service"
	"github.com/adnfaris/tripdana/internal/storage"
)

// Server wires the services to their HTTP routes.
type Server struct {
	router *gin.Engine
	http   *http.Server

	store storage.Store
	authn auth.Authenticator
	jwt   *auth.JWTManager
	hub   *realtime.Hub

	trips        *service.TripService
	members      *service.MemberService
	savings      *service.SavingsService
	withdrawals  *service.WithdrawalService
	expenses     *service.ExpenseService
	destinations *service.DestinationService
	audit        *service.AuditService
}

// Deps bundles everything a Server needs.
type Deps struct {
	Store storage.Store
	Authn auth.Authenticator
	JWT   *auth.JWTManager
	Hub   *realtime.Hub

	Trips        *service.TripService
	Members      *service.MemberService
	Savings      *service.SavingsService
	Withdrawals  *service.WithdrawalService
	Expenses     *service.ExpenseService
	Destinations *service.DestinationService
	Audit        *service.AuditService
}

// New creates a Server with all routes registered.
func New(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:       router,
		store:        deps.Store,
		authn:        deps.Authn,
		jwt:          deps.JWT,
		hub:          deps.Hub,
		trips:        deps.Trips,
		members:      deps.Members,
		savings:      deps.Savings,
		withdrawals:  deps.Withdrawals,
		expenses:     deps.Expenses,
		destinations: deps.Destinations,
		audit:        deps.Audit,
	}

	router.Use(s.requestLogger())
	router.Use(s.metricsMiddleware())
	router.Use(s.securityMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	s.setupRoutes()

	s.http = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Gateway webhooks authenticate by signature, not by user token.
	s.router.POST("/webhooks/midtrans", s.handleMidtransNotification)

	api := s.router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
			authGroup.GET("/me", s.authMiddleware(), s.handleMe)
		}

		authed := api.Group("", s.authMiddleware())
		{
			authed.GET("/trips", s.handleListTrips)
			authed.POST("/trips", s.handleCreateTrip)
			authed.GET("/trips/invitations", s.handleListInvitations)
			authed.POST("/trips/join", s.handleJoinByCode)

			trip := authed.Group("/trips/:id")
			{
				trip.GET("", s.handleGetTrip)
				trip.PUT("", s.handleUpdateTrip)
				trip.DELETE("", s.handleDeleteTrip)
				trip.POST("/join-code", s.handleRegenerateJoinCode)

				trip.GET("/members", s.handleListMembers)
				trip.POST("/members", s.handleInviteMember)
				trip.POST("/members/accept", s.handleAcceptInvitation)
				trip.POST("/members/decline", s.handleDeclineInvitation)
				trip.PUT("/members/:memberId", s.handleUpdateMemberRole)
				trip.DELETE("/members/:memberId", s.handleRemoveMember)
				trip.POST("/members/leave", s.handleLeaveTrip)

				trip.GET("/savings", s.handleListSavings)
				trip.POST("/savings", s.handleCreateSavings)
				trip.GET("/savings/contributions", s.handleContributions)
				trip.GET("/savings/:savingsId", s.handleGetSavings)
				trip.POST("/savings/:savingsId/status", s.handleCheckPaymentStatus)
				trip.POST("/savings/:savingsId/approve", s.handleApproveSavings)

				trip.GET("/withdrawals", s.handleListWithdrawals)
				trip.POST("/withdrawals", s.handleCreateWithdrawal)
				trip.GET("/withdrawals/:wid/votes", s.handleListVotes)
				trip.POST("/withdrawals/:wid/vote", s.handleCastVote)
				trip.POST("/withdrawals/:wid/cancel", s.handleCancelWithdrawal)
				trip.POST("/withdrawals/:wid/complete", s.handleCompleteWithdrawal)

				trip.GET("/expenses", s.handleListExpenses)
				trip.POST("/expenses", s.handleCreateExpense)
				trip.DELETE("/expenses/:expenseId", s.handleDeleteExpense)

				trip.GET("/destinations", s.handleListDestinations)
				trip.POST("/destinations", s.handleCreateDestination)
				trip.PUT("/destinations/:destinationId", s.handleUpdateDestination)
				trip.DELETE("/destinations/:destinationId", s.handleDeleteDestination)

				trip.GET("/audit", s.handleListAudit)
			}
		}
	}

	s.router.GET("/ws/trips/:id", s.authMiddleware(), s.handleTripSocket)
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	slog.Info("Server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
