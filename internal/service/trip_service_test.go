package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/realtime"
)

func TestCreateTripMakesCreatorAdmin(t *testing.T) {
	store := setupStore(t)
	svc := NewTripService(store, nil)
	ctx := context.Background()

	user := seedUser(t, store, "creator")
	trip, err := svc.Create(ctx, user, TripInput{
		Name:         "Lombok Getaway",
		Destination:  "Lombok",
		TargetAmount: 3_000_000,
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if trip.Status != models.TripPlanning {
		t.Errorf("Status = %s, want planning default", trip.Status)
	}
	if len(trip.JoinCode) != joinCodeLength {
		t.Errorf("JoinCode = %q, want %d characters", trip.JoinCode, joinCodeLength)
	}
	if trip.JoinCode != strings.ToUpper(trip.JoinCode) {
		t.Errorf("JoinCode = %q, want uppercase", trip.JoinCode)
	}

	m, err := store.GetMember(ctx, trip.ID, user.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if !m.IsActiveAdmin() {
		t.Errorf("creator role/status = %s/%s, want active admin", m.Role, m.Status)
	}
}

func TestJoinByCodeLifecycle(t *testing.T) {
	store := setupStore(t)
	recorder := &recordBroadcaster{}
	tripSvc := NewTripService(store, recorder)
	memberSvc := NewMemberService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	helper := seedUser(t, store, "helper")
	joiner := seedUser(t, store, "joiner")
	trip := seedTrip(t, store, admin, helper)

	joined, err := tripSvc.JoinByCode(ctx, joiner, trip.JoinCode, RequestMeta{})
	if err != nil {
		t.Fatalf("JoinByCode failed: %v", err)
	}
	if joined.ID != trip.ID {
		t.Fatalf("joined trip %s, want %s", joined.ID, trip.ID)
	}
	if recorder.count(realtime.EventMemberJoined) != 1 {
		t.Errorf("member.joined events = %d, want 1", recorder.count(realtime.EventMemberJoined))
	}
	payload := recorder.last(realtime.EventMemberJoined)
	if payload == nil {
		t.Fatal("no member.joined payload")
	}
	if payload["user_email"] != joiner.Email {
		t.Errorf("payload user_email = %v, want %s", payload["user_email"], joiner.Email)
	}
	if payload["members_count"] != 3 {
		t.Errorf("payload members_count = %v, want 3", payload["members_count"])
	}

	// Joining twice is refused.
	if _, err := tripSvc.JoinByCode(ctx, joiner, trip.JoinCode, RequestMeta{}); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("second join = %v, want ErrAlreadyMember", err)
	}

	// Leaving and redeeming the code again reactivates the row.
	if err := memberSvc.Leave(ctx, joiner, trip.ID, RequestMeta{}); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if _, err := tripSvc.JoinByCode(ctx, joiner, trip.JoinCode, RequestMeta{}); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	m, err := store.GetMember(ctx, trip.ID, joiner.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if m.Status != models.MemberActive {
		t.Errorf("Status = %s, want active after rejoin", m.Status)
	}

	// Case-insensitive input, unknown code rejected.
	if _, err := tripSvc.JoinByCode(ctx, seedUser(t, store, "late"), strings.ToLower(trip.JoinCode), RequestMeta{}); err != nil {
		t.Errorf("lowercased code = %v, want success", err)
	}
	if _, err := tripSvc.JoinByCode(ctx, joiner, "NOSUCH00", RequestMeta{}); !errors.Is(err, ErrJoinCodeNotFound) {
		t.Errorf("unknown code = %v, want ErrJoinCodeNotFound", err)
	}
}

func TestRegenerateJoinCodeInvalidatesOld(t *testing.T) {
	store := setupStore(t)
	svc := NewTripService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	trip := seedTrip(t, store, admin)
	oldCode := trip.JoinCode

	updated, err := svc.RegenerateJoinCode(ctx, admin, trip.ID)
	if err != nil {
		t.Fatalf("RegenerateJoinCode failed: %v", err)
	}
	if updated.JoinCode == oldCode {
		t.Error("join code unchanged")
	}

	joiner := seedUser(t, store, "joiner")
	if _, err := svc.JoinByCode(ctx, joiner, oldCode, RequestMeta{}); !errors.Is(err, ErrJoinCodeNotFound) {
		t.Errorf("old code = %v, want ErrJoinCodeNotFound", err)
	}
	if _, err := svc.JoinByCode(ctx, joiner, updated.JoinCode, RequestMeta{}); err != nil {
		t.Errorf("new code = %v, want success", err)
	}
}

func TestTripTotalsAndProgress(t *testing.T) {
	store := setupStore(t)
	tripSvc := NewTripService(store, nil)
	expenseSvc := NewExpenseService(store)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	trip := seedTrip(t, store, admin) // target 5,000,000

	seedSavings(t, store, trip, admin, 2_000_000)
	seedSavings(t, store, trip, admin, 500_000)
	if _, err := expenseSvc.Create(ctx, admin, trip.ID, ExpenseInput{
		Amount:      300_000,
		Description: "Ferry tickets",
	}, RequestMeta{}); err != nil {
		t.Fatalf("expense Create failed: %v", err)
	}

	view, err := tripSvc.Get(ctx, admin, trip.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if view.Totals.TotalSavings != 2_500_000 {
		t.Errorf("TotalSavings = %v, want 2500000", view.Totals.TotalSavings)
	}
	if view.Totals.TotalExpenses != 300_000 {
		t.Errorf("TotalExpenses = %v, want 300000", view.Totals.TotalExpenses)
	}
	if view.Totals.RemainingBalance != 2_200_000 {
		t.Errorf("RemainingBalance = %v, want 2200000", view.Totals.RemainingBalance)
	}
	if view.Totals.SavingsProgress != 50 {
		t.Errorf("SavingsProgress = %v, want 50", view.Totals.SavingsProgress)
	}
}

func TestTripUpdateRecordsAuditSnapshots(t *testing.T) {
	store := setupStore(t)
	tripSvc := NewTripService(store, nil)
	auditSvc := NewAuditService(store)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	trip := seedTrip(t, store, admin)

	if _, err := tripSvc.Update(ctx, admin, trip.ID, TripInput{
		Name:         "Bali Trip 2026",
		TargetAmount: 7_000_000,
		Status:       models.TripSaving,
	}, RequestMeta{IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	entries, err := auditSvc.List(ctx, admin, trip.ID, 10)
	if err != nil {
		t.Fatalf("audit List failed: %v", err)
	}

	var found *models.AuditLog
	for _, e := range entries {
		if e.Action == models.ActionTripUpdated {
			found = e
			break
		}
	}
	if found == nil {
		t.Fatal("no trip_updated audit entry")
	}
	if found.OldValues["name"] != "Bali Trip" {
		t.Errorf("old name = %v, want Bali Trip", found.OldValues["name"])
	}
	if found.NewValues["name"] != "Bali Trip 2026" {
		t.Errorf("new name = %v, want Bali Trip 2026", found.NewValues["name"])
	}
	if found.IPAddress != "10.0.0.1" {
		t.Errorf("ip = %q, want 10.0.0.1", found.IPAddress)
	}
}

func TestTripMutationsRequireAdmin(t *testing.T) {
	store := setupStore(t)
	svc := NewTripService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	member := seedUser(t, store, "member")
	trip := seedTrip(t, store, admin, member)

	if _, err := svc.Update(ctx, member, trip.ID, TripInput{Name: "Hijacked"}, RequestMeta{}); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("Update by member = %v, want ErrNotAdmin", err)
	}
	if err := svc.Delete(ctx, member, trip.ID); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("Delete by member = %v, want ErrNotAdmin", err)
	}
	if _, err := svc.RegenerateJoinCode(ctx, member, trip.ID); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("RegenerateJoinCode by member = %v, want ErrNotAdmin", err)
	}
}
