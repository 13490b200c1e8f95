// Package events publishes domain events to NATS JetStream. A nil *Publisher
// drops events, so callers never branch on whether NATS is configured.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	SubjectActivityStatus      = "volunteerhub.activity.status_changed"
	SubjectApplicationDecided  = "volunteerhub.application.decided"
	SubjectParticipationRecord = "volunteerhub.participation.recorded"

	streamName = "VOLUNTEERHUB"
)

type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect dials NATS and makes sure the event stream exists.
func Connect(url string, opts ...nats.Option) (*Publisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	if _, err := js.StreamInfo(streamName); errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{"volunteerhub.>"},
			MaxAge:   7 * 24 * time.Hour,
		})
		if err != nil {
			nc.Close()
			return nil, err
		}
	} else if err != nil {
		nc.Close()
		return nil, err
	}
	return &Publisher{conn: nc, js: js}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Publish encodes v as JSON. Failures are logged and never returned: events
// are best effort and must not fail the request that produced them.
func (p *Publisher) Publish(ctx context.Context, subject string, v any) {
	if p == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("subject", subject).Msg("encode event")
		return
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}

type ActivityStatusChanged struct {
	ActivityID string    `json:"activity_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    string    `json:"actor_id"`
	At         time.Time `json:"at"`
}

type ApplicationDecided struct {
	ActivityID    string    `json:"activity_id"`
	ApplicationID string    `json:"application_id"`
	AccountID     string    `json:"account_id"`
	Status        string    `json:"status"`
	ActorID       string    `json:"actor_id"`
	At            time.Time `json:"at"`
}

type ParticipationRecorded struct {
	ActivityID string    `json:"activity_id"`
	AccountID  string    `json:"account_id,omitempty"`
	Records    int64     `json:"records"`
	Hours      float64   `json:"hours"`
	Points     float64   `json:"points"`
	ActorID    string    `json:"actor_id"`
	At         time.Time `json:"at"`
}
