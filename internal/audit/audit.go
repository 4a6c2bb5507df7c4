// Package audit emits structured transition events for every successful
// state change. The sink is pluggable; the shipped recorder writes zap JSON
// lines, an audit table or message bus can be slotted in without touching
// the services.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/domain"
)

// Recorder receives transition events after the owning transaction commits.
type Recorder interface {
	Record(ctx context.Context, event domain.TransitionEvent)
}

type zapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder returns a Recorder that writes events as structured log
// lines.
func NewZapRecorder(logger *zap.Logger) Recorder {
	return &zapRecorder{logger: logger}
}

func (r *zapRecorder) Record(_ context.Context, event domain.TransitionEvent) {
	r.logger.Info("state transition",
		zap.String("entity", event.Entity),
		zap.String("entity_id", event.EntityID),
		zap.String("from_state", event.FromState),
		zap.String("to_state", event.ToState),
		zap.String("actor_id", event.ActorID),
		zap.Time("timestamp", event.Timestamp),
	)
}

// NewEvent stamps a transition event with the current time.
func NewEvent(entity, entityID, from, to, actorID string) domain.TransitionEvent {
	return domain.TransitionEvent{
		Entity:    entity,
		EntityID:  entityID,
		FromState: from,
		ToState:   to,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
}
