// Package events publishes domain events for other services (analytics, SMS gateways).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nikosoko-backend/internal/logger"

	"github.com/nats-io/nats.go"
)

const (
	SubjectJoinRequested    = "nikosoko.membership.requested"
	SubjectJoinVoted        = "nikosoko.membership.voted"
	SubjectJoinDecided      = "nikosoko.membership.decided"
	SubjectInvitationIssued = "nikosoko.gatepass.issued"
	SubjectKnockDecided     = "nikosoko.gatepass.knock_decided"
	SubjectInvitationUsed   = "nikosoko.gatepass.used"
	SubjectInvitationClosed = "nikosoko.gatepass.closed"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Envelope wraps every published payload.
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url, name string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	logger.ExternalServiceCall("nats", "publish", "subject", subject)
	err = p.conn.Publish(subject, data)
	logger.ExternalServiceResult("nats", "publish", err, "subject", subject)
	return err
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
