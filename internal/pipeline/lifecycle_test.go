package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
	"github.com/LoganBarnett/dns-smart-block/internal/pipeline"
)

func TestNextActionNoPriorEvent(t *testing.T) {
	assert.Equal(t, pipeline.DecisionProceed, pipeline.NextAction(nil, false))
}

func TestNextActionQueued(t *testing.T) {
	ev := &eventstore.Event{Action: eventstore.ActionQueued}
	assert.Equal(t, pipeline.DecisionProceed, pipeline.NextAction(ev, false))
}

func TestNextActionClassifying(t *testing.T) {
	ev := &eventstore.Event{Action: eventstore.ActionClassifying}
	assert.Equal(t, pipeline.DecisionProceed, pipeline.NextAction(ev, false))
}

func TestNextActionClassifiedValid(t *testing.T) {
	ev := &eventstore.Event{Action: eventstore.ActionClassified}
	assert.Equal(t, pipeline.DecisionSkip, pipeline.NextAction(ev, true))
}

func TestNextActionClassifiedExpired(t *testing.T) {
	ev := &eventstore.Event{Action: eventstore.ActionClassified}
	assert.Equal(t, pipeline.DecisionProceed, pipeline.NextAction(ev, false))
}

func TestNextActionError(t *testing.T) {
	ev := &eventstore.Event{Action: eventstore.ActionError}
	assert.Equal(t, pipeline.DecisionSkip, pipeline.NextAction(ev, false))
	assert.Equal(t, pipeline.DecisionSkip, pipeline.NextAction(ev, true))
}
