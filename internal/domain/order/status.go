package order

// Status is the lifecycle state of an order. Presentation metadata (labels,
// icons, colors) deliberately lives outside this package.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipping  Status = "shipping"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// statusPriority fixes the display sort rank of each status.
var statusPriority = map[Status]int{
	StatusPending:   1,
	StatusConfirmed: 2,
	StatusPreparing: 3,
	StatusShipping:  4,
	StatusDelivered: 5,
	StatusCompleted: 6,
	StatusCancelled: 7,
}

// Statuses lists every recognized status in priority order.
func Statuses() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusPreparing, StatusShipping,
		StatusDelivered, StatusCompleted, StatusCancelled,
	}
}

// Valid reports whether s is a recognized order status.
func (s Status) Valid() bool {
	_, ok := statusPriority[s]
	return ok
}

// Priority returns the fixed sort rank (1..7) used only for display ordering.
// Unknown statuses sort last.
func (s Status) Priority() int {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return len(statusPriority) + 1
}

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

// CanTransition reports whether an order currently in `from` may be moved to
// `to`. Cancelled is terminal, pending is never re-enterable, and unknown
// targets are rejected. Every other move is allowed, including skipping
// pipeline stages or going backwards: operators must be able to correct a
// mis-set status.
func CanTransition(from, to Status) bool {
	if from.Terminal() || !to.Valid() {
		return false
	}
	return to != StatusPending
}
