// Package pipeline implements the queue-processor's domain lifecycle state
// machine and subprocess invocation of the classifier binary.
package pipeline

import (
	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
)

// Decision is the outcome of NextAction: whether a domain message should
// drive a fresh classification or be skipped.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionSkip
)

// NextAction is a pure function over the domain's latest event and a
// freshness check — no database access inside it, so every row of the
// lifecycle table is unit-testable without a live Postgres.
//
//	(none)                                     -> Proceed
//	queued                                      -> Proceed
//	classifying                                 -> Proceed (possible redelivery after crash)
//	classified, hasValidClassification          -> Skip
//	classified, !hasValidClassification         -> Proceed (re-classify, expired)
//	error                                       -> Skip (no auto-retry)
func NextAction(latest *eventstore.Event, hasValidClassification bool) Decision {
	if latest == nil {
		return DecisionProceed
	}
	switch latest.Action {
	case eventstore.ActionQueued, eventstore.ActionClassifying:
		return DecisionProceed
	case eventstore.ActionClassified:
		if hasValidClassification {
			return DecisionSkip
		}
		return DecisionProceed
	case eventstore.ActionError:
		return DecisionSkip
	default:
		return DecisionProceed
	}
}
