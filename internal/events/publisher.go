// Package events publishes optional lifecycle notifications (order fills,
// equity snapshots, rebalance completion) over NATS. A nil Publisher is a
// valid no-op so the core carries no hard dependency on a running broker.
package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Subjects used by fundcore publishers.
const (
	SubjectOrderFilled        = "fundcore.paper.order_filled"
	SubjectSnapshotRecorded   = "fundcore.paper.snapshot_recorded"
	SubjectRebalanceCompleted = "fundcore.fund.rebalance_completed"
)

// Publisher wraps a nats.Conn. A nil *Publisher or nil underlying Conn makes
// every Publish call a no-op.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials url and returns a Publisher. Connection failures are
// returned so the caller can decide whether to run without events.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		return &Publisher{}, nil
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Publish marshals payload to JSON and publishes it on subject. Errors are
// logged, not returned: event delivery is best-effort and must never block
// or fail the caller's state-changing operation.
func (p *Publisher) Publish(subject string, payload any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to marshal event payload")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

// Close drains and closes the underlying connection, if any.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
