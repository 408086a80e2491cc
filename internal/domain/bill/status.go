package bill

import (
	"fmt"
	"strings"
)

var ErrInvalidStatus = fmt.Errorf("invalid bill status")

// Status is the lifecycle state of a bill.
type Status string

const (
	StatusNotArrived Status = "NOT_ARRIVED" // Generated, the invoice has not been received yet
	StatusDraft      Status = "DRAFT"       // Projection of a future month, never persisted
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusOverdue    Status = "OVERDUE"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNotArrived, StatusDraft, StatusPending, StatusPaid, StatusOverdue:
		return true
	default:
		return false
	}
}

// ParseStatus accepts the enum names case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
