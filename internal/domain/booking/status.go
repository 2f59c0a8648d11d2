package booking

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
)

// transitions is the booking state machine. Canceled is terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCanceled},
	StatusCanceled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// BlocksCalendar reports whether a booking in this status reserves its dates.
func (s Status) BlocksCalendar() bool {
	return s == StatusConfirmed
}

func (s Status) String() string {
	return string(s)
}

var ErrInvalidStatus = errors.New("booking: unknown status")

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidStatus, raw)
	}
	return s, nil
}
