package models

// MemberRole is a member's role within a trip.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// MemberStatus is the membership lifecycle state.
type MemberStatus string

const (
	MemberPending MemberStatus = "pending"
	MemberActive  MemberStatus = "active"
	MemberLeft    MemberStatus = "left"
)

// TripMember links a user to a trip. There is at most one row per
// (trip, user) pair; rows use sequential integer ids.
type TripMember struct {
	ID     int64
	TripID string
	UserID string
	Role   MemberRole
	Status MemberStatus

	// JoinedAt is the Unix timestamp when the member became active,
	// 0 while the invitation is pending.
	JoinedAt  int64
	CreatedAt int64
}

// IsActiveAdmin reports whether this member currently counts towards the
// trip's admin quorum.
func (m *TripMember) IsActiveAdmin() bool {
	return m.Role == RoleAdmin && m.Status == MemberActive
}
