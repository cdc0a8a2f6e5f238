// internal/domain/models/state.go
package models

import (
	"errors"
	"fmt"
)

// Status is the assignment's placement status.
type Status string

const (
	StatusInContainer Status = "IN_CONTAINER"
	StatusOut         Status = "OUT"
	StatusRejected    Status = "REJECTED"
)

// CardStatus is a lock flag on the card. The empty value means unlocked.
type CardStatus string

const (
	CardNone      CardStatus = ""
	CardQualified CardStatus = "QUALIFIED"
	CardRejected  CardStatus = "REJECTED"
)

// Decision is the meeting decision sub-state. The empty value means none.
type Decision string

const (
	DecisionNone            Decision = ""
	DecisionPending         Decision = "PENDING"
	DecisionProcessing      Decision = "PROCESSING"
	DecisionApprovedFor     Decision = "APPROVED_FOR"
	DecisionConfirmed       Decision = "CONFIRMED"
	DecisionRejected        Decision = "REJECTED"
	DecisionBypass          Decision = "BYPASS"
	DecisionBypassConfirmed Decision = "BYPASS_CONFIRMED"
)

// ErrIllegalTransition is returned when a state change is not permitted
// from the current state.
var ErrIllegalTransition = errors.New("illegal assignment state transition")

// AssignmentState is the combined state of an assignment. The three parts
// are only changed together through the transition methods below, which
// refuse combinations such as a qualified card that is out.
type AssignmentState struct {
	Status          Status     `bson:"status" json:"status"`
	CardStatus      CardStatus `bson:"card_status,omitempty" json:"cardStatus,omitempty"`
	MeetingDecision Decision   `bson:"meeting_decision,omitempty" json:"meetingDecision,omitempty"`
}

// Placed returns the state of a freshly placed card with decision d.
func Placed(d Decision) (AssignmentState, error) {
	switch d {
	case DecisionPending, DecisionApprovedFor, DecisionBypass:
		return AssignmentState{Status: StatusInContainer, MeetingDecision: d}, nil
	}
	return AssignmentState{}, fmt.Errorf("%w: cannot place with decision %q", ErrIllegalTransition, d)
}

// Validate reports whether the combination is one the machine can reach.
func (s AssignmentState) Validate() error {
	switch s.Status {
	case StatusInContainer:
		if s.CardStatus == CardRejected {
			return fmt.Errorf("%w: live card marked rejected", ErrIllegalTransition)
		}
		if s.CardStatus == CardQualified && s.MeetingDecision == DecisionProcessing {
			return fmt.Errorf("%w: qualified card in processing", ErrIllegalTransition)
		}
	case StatusOut:
		if s.CardStatus != CardNone {
			return fmt.Errorf("%w: out card with card status %q", ErrIllegalTransition, s.CardStatus)
		}
		if s.MeetingDecision == DecisionProcessing {
			return fmt.Errorf("%w: out card in processing", ErrIllegalTransition)
		}
	case StatusRejected:
		if s.CardStatus != CardRejected {
			return fmt.Errorf("%w: rejected card with card status %q", ErrIllegalTransition, s.CardStatus)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, s.Status)
	}
	return nil
}

// Live reports whether the card occupies its container.
func (s AssignmentState) Live() bool { return s.Status == StatusInContainer }

// Qualified reports whether the card carries the terminal qualified lock.
func (s AssignmentState) Qualified() bool { return s.CardStatus == CardQualified }

// Processing reports whether a confirm currently holds the card.
func (s AssignmentState) Processing() bool { return s.MeetingDecision == DecisionProcessing }

// Movable reports whether the card may be shifted, re-dated, rejected or
// taken out.
func (s AssignmentState) Movable() error {
	switch {
	case !s.Live():
		return fmt.Errorf("%w: card is %s", ErrIllegalTransition, s.Status)
	case s.Qualified():
		return fmt.Errorf("%w: card is qualified", ErrIllegalTransition)
	case s.Processing():
		return fmt.Errorf("%w: card is processing", ErrIllegalTransition)
	}
	return nil
}

// Decide sets a new meeting decision on a movable card.
func (s AssignmentState) Decide(d Decision) (AssignmentState, error) {
	if err := s.Movable(); err != nil {
		return s, err
	}
	switch d {
	case DecisionPending, DecisionApprovedFor, DecisionBypass:
		s.MeetingDecision = d
		return s, nil
	}
	return s, fmt.Errorf("%w: cannot decide %q", ErrIllegalTransition, d)
}

// BeginProcessing takes the confirm lock from the expected pre-state.
func (s AssignmentState) BeginProcessing(expected Decision) (AssignmentState, error) {
	if err := s.Movable(); err != nil {
		return s, err
	}
	if expected != DecisionPending && expected != DecisionBypass {
		return s, fmt.Errorf("%w: cannot confirm from %q", ErrIllegalTransition, expected)
	}
	if s.MeetingDecision != expected {
		return s, fmt.Errorf("%w: expected %q, have %q", ErrIllegalTransition, expected, s.MeetingDecision)
	}
	s.MeetingDecision = DecisionProcessing
	return s, nil
}

// Confirm finishes a processing card. bypass selects BYPASS_CONFIRMED.
func (s AssignmentState) Confirm(bypass bool) (AssignmentState, error) {
	if !s.Live() || !s.Processing() {
		return s, fmt.Errorf("%w: confirm requires a processing card", ErrIllegalTransition)
	}
	if bypass {
		s.MeetingDecision = DecisionBypassConfirmed
	} else {
		s.MeetingDecision = DecisionConfirmed
	}
	return s, nil
}

// Release restores the decision held before the confirm lock was taken.
func (s AssignmentState) Release(prior Decision) AssignmentState {
	if s.Processing() {
		s.MeetingDecision = prior
	}
	return s
}

// Qualify locks a live card as qualified. Qualifying twice is allowed and
// leaves the state unchanged.
func (s AssignmentState) Qualify() (AssignmentState, error) {
	if !s.Live() {
		return s, fmt.Errorf("%w: card is %s", ErrIllegalTransition, s.Status)
	}
	if s.Processing() {
		return s, fmt.Errorf("%w: card is processing", ErrIllegalTransition)
	}
	s.CardStatus = CardQualified
	return s, nil
}

// TakeOut removes a movable card from its container.
func (s AssignmentState) TakeOut() (AssignmentState, error) {
	if err := s.Movable(); err != nil {
		return s, err
	}
	s.Status = StatusOut
	return s, nil
}

// Trash marks a movable card rejected in place.
func (s AssignmentState) Trash() (AssignmentState, error) {
	if err := s.Movable(); err != nil {
		return s, err
	}
	s.Status = StatusRejected
	s.CardStatus = CardRejected
	s.MeetingDecision = DecisionRejected
	return s, nil
}
