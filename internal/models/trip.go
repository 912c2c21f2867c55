package models

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripPlanning  TripStatus = "planning"
	TripSaving    TripStatus = "saving"
	TripOngoing   TripStatus = "ongoing"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripPlanning, TripSaving, TripOngoing, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Trip is the aggregate root for a group trip: members, itinerary, shared
// savings, expenses and withdrawals all hang off it.
type Trip struct {
	ID          string
	Name        string
	Description string
	Destination string

	// StartDate and EndDate are Unix timestamps (date precision).
	StartDate int64
	EndDate   int64

	// TargetAmount is the savings goal for the trip.
	TargetAmount float64

	Status TripStatus

	// JoinCode is a unique 8-character code members can redeem to join.
	JoinCode string

	CreatedBy string
	CreatedAt int64
	UpdatedAt int64
}

// TripTotals holds the derived financial figures for a trip. They are
// aggregated from successful savings and recorded expenses on every read.
type TripTotals struct {
	TotalSavings     float64
	TotalExpenses    float64
	RemainingBalance float64
	SavingsProgress  float64
}

// Progress returns the savings progress percentage against the target,
// capped at 100.
func (t *Trip) Progress(totalSavings float64) float64 {
	if t.TargetAmount <= 0 {
		return 0
	}
	p := totalSavings / t.TargetAmount * 100
	if p > 100 {
		return 100
	}
	return p
}
