package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/realtime"
)

func TestLastAdminCannotLeaveOrBeDemoted(t *testing.T) {
	store := setupStore(t)
	svc := NewMemberService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	member := seedUser(t, store, "member")
	trip := seedTrip(t, store, admin, member)

	if err := svc.Leave(ctx, admin, trip.ID, RequestMeta{}); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("Leave as last admin = %v, want ErrLastAdmin", err)
	}

	adminRow, err := store.GetMember(ctx, trip.ID, admin.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if _, err := svc.UpdateRole(ctx, admin, trip.ID, adminRow.ID, models.RoleMember); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("self-demote as last admin = %v, want ErrLastAdmin", err)
	}
	if err := svc.Remove(ctx, admin, trip.ID, adminRow.ID, RequestMeta{}); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("Remove last admin = %v, want ErrLastAdmin", err)
	}

	// Promoting the other member unblocks leaving.
	memberRow, err := store.GetMember(ctx, trip.ID, member.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if _, err := svc.UpdateRole(ctx, admin, trip.ID, memberRow.ID, models.RoleAdmin); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if err := svc.Leave(ctx, admin, trip.ID, RequestMeta{}); err != nil {
		t.Fatalf("Leave after promotion failed: %v", err)
	}

	left, err := store.GetMember(ctx, trip.ID, admin.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if left.Status != models.MemberLeft {
		t.Errorf("Status = %s, want left", left.Status)
	}
}

func TestConcurrentLeavesKeepOneAdmin(t *testing.T) {
	store := setupStore(t)
	svc := NewMemberService(store, nil)
	ctx := context.Background()

	a := seedUser(t, store, "a")
	b := seedUser(t, store, "b")
	trip := seedTrip(t, store, a, b)

	// Make both admins, then have both try to leave at once. At most one
	// may succeed.
	row, err := store.GetMember(ctx, trip.ID, b.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	row.Role = models.RoleAdmin
	if err := store.UpdateMember(ctx, row); err != nil {
		t.Fatalf("UpdateMember failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, u := range []*models.User{a, b} {
		wg.Add(1)
		go func(i int, u *models.User) {
			defer wg.Done()
			results[i] = svc.Leave(ctx, u, trip.ID, RequestMeta{})
		}(i, u)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrLastAdmin) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded > 1 {
		t.Fatalf("%d leaves succeeded, the trip has no admin left", succeeded)
	}

	admins, err := store.CountActiveAdmins(ctx, trip.ID)
	if err != nil {
		t.Fatalf("CountActiveAdmins failed: %v", err)
	}
	if admins < 1 {
		t.Fatalf("active admins = %d, want at least 1", admins)
	}
}

func TestInviteAcceptDeclineFlow(t *testing.T) {
	store := setupStore(t)
	recorder := &recordBroadcaster{}
	svc := NewMemberService(store, recorder)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	invitee := seedUser(t, store, "invitee")
	trip := seedTrip(t, store, admin)

	m, err := svc.Invite(ctx, admin, trip.ID, invitee.Email, models.RoleMember)
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if m.Status != models.MemberPending {
		t.Errorf("Status = %s, want pending", m.Status)
	}

	// A pending invitee cannot act on the trip.
	withdrawals := NewWithdrawalService(store, nil)
	if _, err := withdrawals.Create(ctx, invitee, trip.ID, CreateWithdrawalInput{
		Amount: 50_000, Reason: "x", VotingDays: 1,
	}, RequestMeta{}); !errors.Is(err, ErrNotActiveMember) {
		t.Errorf("pending member action = %v, want ErrNotActiveMember", err)
	}

	// Inviting again while pending is refused.
	if _, err := svc.Invite(ctx, admin, trip.ID, invitee.Email, models.RoleMember); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("duplicate invite = %v, want ErrAlreadyMember", err)
	}

	accepted, err := svc.Accept(ctx, invitee, trip.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if accepted.Status != models.MemberActive || accepted.JoinedAt == 0 {
		t.Errorf("accepted = %s/%d, want active with JoinedAt", accepted.Status, accepted.JoinedAt)
	}

	payload := recorder.last(realtime.EventMemberJoined)
	if payload == nil {
		t.Fatal("no member.joined payload")
	}
	if payload["user_email"] != invitee.Email {
		t.Errorf("payload user_email = %v, want %s", payload["user_email"], invitee.Email)
	}
	if payload["members_count"] != 2 {
		t.Errorf("payload members_count = %v, want 2", payload["members_count"])
	}

	// Decline path for a second invitee.
	decliner := seedUser(t, store, "decliner")
	if _, err := svc.Invite(ctx, admin, trip.ID, decliner.Email, models.RoleMember); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := svc.Decline(ctx, decliner, trip.ID); err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if _, err := store.GetMember(ctx, trip.ID, decliner.ID); err == nil {
		t.Error("declined invitation still present")
	}

	// Pending invitations only count active members towards quorum.
	active, err := store.CountMembers(ctx, trip.ID, models.MemberActive)
	if err != nil {
		t.Fatalf("CountMembers failed: %v", err)
	}
	if active != 2 {
		t.Errorf("active members = %d, want 2", active)
	}
}

func TestRemoveMemberIsSoft(t *testing.T) {
	store := setupStore(t)
	svc := NewMemberService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	member := seedUser(t, store, "member")
	trip := seedTrip(t, store, admin, member)

	row, err := store.GetMember(ctx, trip.ID, member.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if err := svc.Remove(ctx, admin, trip.ID, row.ID, RequestMeta{}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// The row survives with its history so a later rejoin reactivates it.
	removed, err := store.GetMember(ctx, trip.ID, member.ID)
	if err != nil {
		t.Fatalf("GetMember after removal failed: %v", err)
	}
	if removed.Status != models.MemberLeft {
		t.Errorf("Status = %s, want left", removed.Status)
	}

	// Removing again is a no-op.
	if err := svc.Remove(ctx, admin, trip.ID, row.ID, RequestMeta{}); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}

	trips := NewTripService(store, nil)
	if _, err := trips.JoinByCode(ctx, member, trip.JoinCode, RequestMeta{}); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	rejoined, err := store.GetMember(ctx, trip.ID, member.ID)
	if err != nil {
		t.Fatalf("GetMember after rejoin failed: %v", err)
	}
	if rejoined.Status != models.MemberActive {
		t.Errorf("Status after rejoin = %s, want active", rejoined.Status)
	}
	if rejoined.ID != row.ID {
		t.Errorf("rejoin created row %d, want reactivated row %d", rejoined.ID, row.ID)
	}
}

func TestInviteRequiresRegisteredUser(t *testing.T) {
	store := setupStore(t)
	svc := NewMemberService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	trip := seedTrip(t, store, admin)

	if _, err := svc.Invite(ctx, admin, trip.ID, "nobody@example.com", models.RoleMember); !errors.Is(err, ErrValidation) {
		t.Errorf("Invite unknown email = %v, want ErrValidation", err)
	}
}

func TestMemberListIncludesProfiles(t *testing.T) {
	store := setupStore(t)
	svc := NewMemberService(store, nil)
	ctx := context.Background()

	admin := seedUser(t, store, "admin")
	member := seedUser(t, store, "member")
	trip := seedTrip(t, store, admin, member)

	views, err := svc.List(ctx, member, trip.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	for _, v := range views {
		if v.User == nil || v.User.DisplayName == "" {
			t.Errorf("member %d missing user profile", v.Member.ID)
		}
	}

	outsider := seedUser(t, store, "outsider")
	if _, err := svc.List(ctx, outsider, trip.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("List by outsider = %v, want ErrNotMember", err)
	}
}
