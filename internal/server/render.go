package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/service"
)

// The models carry no JSON tags; these builders define the API shapes.

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"created_at":   u.CreatedAt,
	}
}

func tripJSON(t *models.Trip) gin.H {
	return gin.H{
		"id":            t.ID,
		"name":          t.Name,
		"description":   t.Description,
		"destination":   t.Destination,
		"start_date":    t.StartDate,
		"end_date":      t.EndDate,
		"target_amount": t.TargetAmount,
		"status":        t.Status,
		"join_code":     t.JoinCode,
		"created_by":    t.CreatedBy,
		"created_at":    t.CreatedAt,
		"updated_at":    t.UpdatedAt,
	}
}

func tripViewJSON(v *service.TripView) gin.H {
	out := tripJSON(v.Trip)
	out["role"] = v.Role
	out["totals"] = gin.H{
		"total_savings":     v.Totals.TotalSavings,
		"total_expenses":    v.Totals.TotalExpenses,
		"remaining_balance": v.Totals.RemainingBalance,
		"savings_progress":  v.Totals.SavingsProgress,
	}
	return out
}

func memberJSON(v *service.MemberView) gin.H {
	out := gin.H{
		"id":        v.Member.ID,
		"trip_id":   v.Member.TripID,
		"user_id":   v.Member.UserID,
		"role":      v.Member.Role,
		"status":    v.Member.Status,
		"joined_at": v.Member.JoinedAt,
	}
	if v.User != nil {
		out["display_name"] = v.User.DisplayName
		out["email"] = v.User.Email
	}
	return out
}

func savingsJSON(s *models.Savings) gin.H {
	return gin.H{
		"id":             s.ID,
		"trip_id":        s.TripID,
		"user_id":        s.UserID,
		"amount":         s.Amount,
		"method":         s.Method,
		"status":         s.Status,
		"transaction_id": s.TransactionID,
		"order_id":       s.OrderID,
		"details":        s.Details,
		"notes":          s.Notes,
		"paid_at":        s.PaidAt,
		"expires_at":     s.ExpiresAt,
		"created_at":     s.CreatedAt,
	}
}

func withdrawalJSON(w *models.Withdrawal, now time.Time) gin.H {
	return gin.H{
		"id":                w.ID,
		"trip_id":           w.TripID,
		"requested_by":      w.RequestedBy,
		"amount":            w.Amount,
		"reason":            w.Reason,
		"description":       w.Description,
		"status":            w.Status,
		"votes_required":    w.VotesRequired,
		"votes_approve":     w.VotesApprove,
		"votes_reject":      w.VotesReject,
		"approval_progress": w.ApprovalProgress(),
		"voting_deadline":   w.VotingDeadline,
		"is_voting_open":    w.IsVotingOpen(now),
		"processed_at":      w.ProcessedAt,
		"created_at":        w.CreatedAt,
	}
}

func voteJSON(v *models.WithdrawalVote) gin.H {
	return gin.H{
		"id":            v.ID,
		"withdrawal_id": v.WithdrawalID,
		"user_id":       v.UserID,
		"approved":      v.Approved,
		"comment":       v.Comment,
		"created_at":    v.CreatedAt,
	}
}

func expenseJSON(e *models.Expense) gin.H {
	return gin.H{
		"id":          e.ID,
		"trip_id":     e.TripID,
		"spent_by":    e.SpentBy,
		"amount":      e.Amount,
		"category":    e.Category,
		"description": e.Description,
		"spent_at":    e.SpentAt,
		"created_at":  e.CreatedAt,
	}
}

func destinationJSON(d *models.Destination) gin.H {
	return gin.H{
		"id":             d.ID,
		"trip_id":        d.TripID,
		"name":           d.Name,
		"description":    d.Description,
		"location":       d.Location,
		"location_url":   d.LocationURL,
		"visit_date":     d.VisitDate,
		"start_time":     d.StartTime,
		"end_time":       d.EndTime,
		"order":          d.Order,
		"estimated_cost": d.EstimatedCost,
		"category":       d.Category,
		"created_at":     d.CreatedAt,
	}
}

func auditJSON(a *models.AuditLog) gin.H {
	return gin.H{
		"id":           a.ID,
		"trip_id":      a.TripID,
		"user_id":      a.UserID,
		"action":       a.Action,
		"subject_kind": a.Subject.Kind,
		"subject_id":   a.Subject.ID,
		"old_values":   a.OldValues,
		"new_values":   a.NewValues,
		"ip_address":   a.IPAddress,
		"created_at":   a.CreatedAt,
	}
}
