// Package events publishes validation outcomes onto NATS subjects so the
// review queue and the persistence worker can react without polling.
package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/jsonx"
	"github.com/brew-resolution-kernel/internal/model"
)

// Subjects.
const (
	SubjectOutcome      = "resolution.outcome"
	SubjectActionPrefix = "resolution.action."
)

// Publisher emits run outcomes and pending user actions. A nil Publisher is
// valid and publishes nothing, so callers do not branch on configuration.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// Connect dials NATS and returns a Publisher.
func Connect(url string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(url,
		nats.Name("brew-resolution-kernel"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", url))
	return &Publisher{nc: nc, logger: logger.Named("events")}, nil
}

// PublishOutcome emits the full outcome on the outcome subject and each
// pending user action on a per-type action subject. Publish failures are
// logged, never surfaced: the HTTP response already carries the outcome.
func (p *Publisher) PublishOutcome(ctx context.Context, outcome *model.ValidationOutcome) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := jsonx.Marshal(outcome)
	if err != nil {
		p.logger.Warn("failed to encode outcome event", zap.Error(err))
		return
	}
	if err := p.nc.Publish(SubjectOutcome, data); err != nil {
		p.logger.Warn("failed to publish outcome", zap.Error(err))
	}

	for _, action := range outcome.UserActions {
		payload, err := jsonx.Marshal(action)
		if err != nil {
			p.logger.Warn("failed to encode action event",
				zap.String("action_id", action.ID),
				zap.Error(err))
			continue
		}
		subject := actionSubject(action.Type)
		if err := p.nc.Publish(subject, payload); err != nil {
			p.logger.Warn("failed to publish action",
				zap.String("subject", subject),
				zap.Error(err))
		}
	}
}

// actionSubject derives the per-type subject of a user action.
func actionSubject(t model.UserActionType) string {
	return SubjectActionPrefix + string(t)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("NATS drain failed", zap.Error(err))
	}
}
