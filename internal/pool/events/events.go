// Package events defines the notifications the pool emits after each
// committed mutation, and the Notifier interface sinks implement.
//
// The contract is exactly-once per successful operation, after state commit,
// never on failure. Sinks must therefore be fail-open: a sink that cannot
// deliver logs and drops, it never fails the already-committed operation.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"givepool/pkg/domain"
)

// Kind identifies the operation an event corresponds to.
type Kind string

const (
	KindBeneficiaryRegistered Kind = "beneficiary_registered"
	KindAllocationUpdated     Kind = "allocation_updated"
	KindStatusChanged         Kind = "status_changed"
	KindDonationReceived      Kind = "donation_received"
	KindWithdrawalCompleted   Kind = "withdrawal_completed"
	KindFunded                Kind = "funded"
)

// Event carries the identities and amounts relevant to one committed
// operation. Fields not meaningful for a kind stay zero.
type Event struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Principal domain.PrincipalID `json:"principal"`
	Amount    int64              `json:"amount,omitempty"`
	Percent   int                `json:"percent,omitempty"`
	Active    bool               `json:"active,omitempty"`
	Index     int64              `json:"index,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// New builds an event with a fresh id and timestamp.
func New(kind Kind, principal domain.PrincipalID) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Principal: principal,
		Timestamp: time.Now(),
	}
}

// Notifier receives events synchronously after commit.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// SlogNotifier writes events to the structured log. It is the sink that is
// always wired; Kafka is layered on top when configured.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Notify(ctx context.Context, event Event) {
	n.logger.InfoContext(ctx, "pool event",
		"event_id", event.ID,
		"kind", string(event.Kind),
		"principal", event.Principal.String(),
		"amount", event.Amount,
		"percent", event.Percent,
		"active", event.Active,
		"index", event.Index,
	)
}

// Fanout delivers each event to every sink in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event Event) {
	for _, n := range f {
		n.Notify(ctx, event)
	}
}
