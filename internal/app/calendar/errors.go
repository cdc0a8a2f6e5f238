// internal/app/calendar/errors.go
package calendar

import (
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
)

// Error codes returned by calendar operations.
const (
	CodeCommitMessageRequired = "COMMIT_MESSAGE_REQUIRED"
	CodeCustomersRequired     = "CUSTOMERS_REQUIRED"
	CodeInvalidDate           = "INVALID_DATE"
	CodeInvalidMode           = "INVALID_MODE"
	CodeInvalidMinutes        = "INVALID_MINUTES"
	CodeInvalidLimit          = "INVALID_LIMIT"
	CodeInvalidRejectAction   = "INVALID_REJECT_ACTION"
	CodeInvalidMoveMembers    = "INVALID_MOVE_MEMBERS"
	CodeDateRequired          = "DATE_REQUIRED"

	CodeContainerNotFound  = "CONTAINER_NOT_FOUND"
	CodeAssignmentNotFound = "ASSIGNMENT_NOT_FOUND"
	CodeCustomerNotFound   = "CUSTOMER_NOT_FOUND"

	CodeContainerMismatch = "CONTAINER_MISMATCH"
	CodeNotInContainer    = "NOT_IN_CONTAINER"
	CodeLockedQualified   = "LOCKED_QUALIFIED"
	CodeAlreadyProcessing = "ALREADY_PROCESSING"
	CodeAlreadyAssigned   = "ALREADY_ASSIGNED"
	CodeAlreadyInPending  = "ALREADY_IN_PENDING"
	CodeInvalidState      = "INVALID_STATE"
	CodeSameDate          = "SAME_DATE"
	CodeSameOccupyDate    = "SAME_OCCUPY_DATE"
	CodeStaleData         = "STALE_DATA"
	CodeRaceCondition     = "RACE_CONDITION"
	CodeLimitBelowUsed    = "LIMIT_BELOW_USED"

	CodeHousefull       = "HOUSEFULL"
	CodeDikshaHousefull = "DIKSHA_HOUSEFULL"
	CodeTargetHousefull = "TARGET_HOUSEFULL"

	CodeContainerLocked = "CONTAINER_LOCKED"
	CodeTargetLocked    = "TARGET_LOCKED"
	CodeCooldownActive  = "COOLDOWN_ACTIVE"

	CodeNotEligible         = "NOT_ELIGIBLE_FOR_DIKSHA"
	CodeOccupyRequired      = "OCCUPY_REQUIRED"
	CodeOccupyBeforeMeeting = "OCCUPY_BEFORE_MEETING"
	CodeOccupyNotApplicable = "OCCUPY_NOT_APPLICABLE"
	CodePastDate            = "PAST_DATE_NOT_ALLOWED"
	CodeDateCrossesOccupied = "DATE_CROSSES_OCCUPIED"
	CodeNotMeeting          = "NOT_MEETING"
	CodeNotDiksha           = "NOT_DIKSHA"
	CodeContainerCreate     = "CONTAINER_CREATE_FAILED"
)

func errCommitMessage() error {
	return apierr.BadRequest(CodeCommitMessageRequired, "a commit message is required")
}

func errContainerNotFound() error {
	return apierr.NotFound(CodeContainerNotFound, "container not found")
}

func errAssignmentNotFound() error {
	return apierr.NotFound(CodeAssignmentNotFound, "assignment not found")
}

func errLockedQualified() error {
	return apierr.Conflict(CodeLockedQualified, "card is qualified and locked")
}

func errAlreadyProcessing() error {
	return apierr.Conflict(CodeAlreadyProcessing, "already processing or already confirmed")
}

func errRace() error {
	return apierr.Conflict(CodeRaceCondition, "card changed while the request was validated; reload and retry")
}

func errPastDate(field, date string) error {
	return apierr.BadRequest(CodePastDate, "date is in the past").
		With("field", field).With("date", date)
}

func errInvalidDate(field string) error {
	return apierr.BadRequest(CodeInvalidDate, "date must be YYYY-MM-DD").With("field", field)
}

func errContainerCreate() error {
	return apierr.Internal(CodeContainerCreate, "could not create the target container")
}
