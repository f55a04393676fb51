// Package domain holds the record types shared by the store, workers, and orchestrator.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidStatus is returned when a status string is not one of the known values.
var ErrInvalidStatus = errors.New("invalid status")

// Status is the resolved availability of a domain.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusUnknown     Status = "unknown"
	// StatusError marks a domain whose check failed; it is retried on the next run.
	StatusError Status = "error"
)

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusAvailable, StatusUnavailable, StatusUnknown, StatusError}
}

// ParseStatus converts s into a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusUnknown, StatusError:
		return true
	default:
		return false
	}
}

// IsResolved reports whether the status counts as "already checked".
func (s Status) IsResolved() bool {
	return s.IsValid() && s != StatusError
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalJSON validates the status at the decoding boundary.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, string(data))
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// MarshalJSON refuses to write an invalid status.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
	return json.Marshal(string(s))
}
