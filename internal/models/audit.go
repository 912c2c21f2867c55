package models

// AuditAction tags what happened in an audit entry.
type AuditAction string

const (
	ActionTripCreated         AuditAction = "trip_created"
	ActionTripUpdated         AuditAction = "trip_updated"
	ActionPaymentReceived     AuditAction = "payment_received"
	ActionWithdrawalRequested AuditAction = "withdrawal_requested"
	ActionWithdrawalCompleted AuditAction = "withdrawal_completed"
	ActionVoteCast            AuditAction = "vote_cast"
	ActionMemberJoined        AuditAction = "member_joined"
	ActionMemberLeft          AuditAction = "member_left"
	ActionExpenseRecorded     AuditAction = "expense_recorded"
	ActionDestinationAdded    AuditAction = "destination_added"
)

// SubjectKind identifies the kind of entity an audit entry refers to.
// Using a closed enum instead of runtime type names keeps the audit table
// honest about what it can reference.
type SubjectKind string

const (
	SubjectTrip        SubjectKind = "trip"
	SubjectMember      SubjectKind = "member"
	SubjectSavings     SubjectKind = "savings"
	SubjectWithdrawal  SubjectKind = "withdrawal"
	SubjectExpense     SubjectKind = "expense"
	SubjectDestination SubjectKind = "destination"
)

// AuditSubject points at the entity an audit entry is about.
type AuditSubject struct {
	Kind SubjectKind
	// ID is the entity id: a UUIDv7 string, or the decimal form of a
	// member row id.
	ID string
}

// AuditLog is one append-only audit trail entry. Entries are never updated
// or deleted.
type AuditLog struct {
	ID      string
	TripID  string
	UserID  string
	Action  AuditAction
	Subject AuditSubject

	// OldValues and NewValues are snapshots of the relevant fields before
	// and after the action. Either may be nil.
	OldValues map[string]any
	NewValues map[string]any

	IPAddress string
	UserAgent string
	CreatedAt int64
}
