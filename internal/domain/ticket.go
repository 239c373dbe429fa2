package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"

	// TicketStatusUnavailable is recorded as the previous status when a ticket had none.
	TicketStatusUnavailable TicketStatus = "N/A"
)

// DefaultTicketStatus is assigned to every new ticket.
const DefaultTicketStatus = TicketStatusOpen

// Valid reports whether s is a status a ticket may be moved to.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// DefaultTicketPriority applies when a ticket is created without a priority.
const DefaultTicketPriority = TicketPriorityLow

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// OptionalID is a reference that may be unset. The zero value is unset.
type OptionalID struct {
	id  string
	set bool
}

// SomeID returns a set reference.
func SomeID(id string) OptionalID {
	return OptionalID{id: id, set: true}
}

// NoID returns an unset reference.
func NoID() OptionalID {
	return OptionalID{}
}

// OptionalIDFromPtr converts a nullable column value.
func OptionalIDFromPtr(id *string) OptionalID {
	if id == nil {
		return NoID()
	}
	return SomeID(*id)
}

// Get returns the id and whether it is set.
func (o OptionalID) Get() (string, bool) {
	return o.id, o.set
}

// IsSet reports whether the reference points at something.
func (o OptionalID) IsSet() bool {
	return o.set
}

// Ptr returns a nullable representation for storage and JSON.
func (o OptionalID) Ptr() *string {
	if !o.set {
		return nil
	}
	id := o.id
	return &id
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedBy   string
	AssignedTo  OptionalID
	CreatedAt   time.Time
}

// TicketView is a ticket with its creator and assignee resolved.
type TicketView struct {
	Ticket
	Creator  UserSummary
	Assignee *UserSummary
}

// StatusLog is one immutable entry of a ticket's status history.
type StatusLog struct {
	ID        string
	TicketID  string
	OldStatus TicketStatus
	NewStatus TicketStatus
	ChangedBy string
	ChangedAt time.Time
}
