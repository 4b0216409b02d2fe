package services

import "errors"

// Error taxonomy. DuplicateAward is deliberately absent: a duplicate award is
// the applied=false return from ScoreLedger.Award, not a failure.
var (
	ErrInvalidReasonKey = errors.New("invalid reason key")
	ErrUnknownUser      = errors.New("unknown user")
	ErrUnknownLevel     = errors.New("unknown level")
	ErrPeriodSettling   = errors.New("league period is settling")
	ErrPeriodNotFound   = errors.New("league period not found")
	ErrPeriodNotDue     = errors.New("league period has not ended yet")
)
