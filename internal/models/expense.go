package models

// Expense is money spent out of the trip's shared funds. Expenses reduce
// the remaining balance used when validating withdrawal amounts.
type Expense struct {
	ID          string
	TripID      string
	SpentBy     string
	Amount      float64
	Category    string
	Description string

	// SpentAt is the Unix timestamp of the expense date.
	SpentAt   int64
	CreatedAt int64
}

// Destination is one itinerary item on a trip.
type Destination struct {
	ID          string
	TripID      string
	Name        string
	Description string
	Location    string
	LocationURL string

	// VisitDate is a Unix timestamp (date precision); StartTime and EndTime
	// are optional "HH:MM" strings within that day.
	VisitDate int64
	StartTime string
	EndTime   string

	// Order sorts destinations within the same visit date.
	Order int

	EstimatedCost float64
	Category      string
	CreatedAt     int64
}
