// Package service implements the pool core: the beneficiary registry, the
// proportional splitter, the balance ledger, the donation history, and the
// withdrawal processor, behind one synchronization boundary.
//
// Every mutating operation holds the service mutex end to end, including the
// treasury transfer during withdrawal, so no two operations ever interleave
// their reads and writes and a re-entrant call during a transfer is
// serialized behind the balance-clearing write. Read accessors take the same
// lock to observe a consistent snapshot.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"givepool/internal/pool/events"
	"givepool/internal/pool/metrics"
	"givepool/internal/pool/store"
	"givepool/internal/treasury"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
)

// Service owns the pool state. One instance is the single authority over one
// ledger; there is no ambient or static state.
type Service struct {
	mu sync.Mutex

	admin    domain.PrincipalID
	store    store.Store
	runner   store.TxRunner
	treasury treasury.Treasury

	notifier events.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(notifier events.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the pool service. The admin principal is immutable for the
// lifetime of the service.
func New(st store.Store, runner store.TxRunner, tr treasury.Treasury, admin domain.PrincipalID, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("pool store is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("treasury is required")
	}
	if admin.IsNil() {
		return nil, fmt.Errorf("admin principal is required")
	}

	svc := &Service{
		admin:    admin,
		store:    st,
		runner:   runner,
		treasury: tr,
		tracer:   otel.Tracer("givepool/pool"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// requireAdmin gates registry mutations on the designated principal. Checked
// before any read or write so a rejected call has no effect.
func (s *Service) requireAdmin(caller domain.PrincipalID) error {
	if caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the admin principal can modify the registry")
	}
	return nil
}

func (s *Service) notify(ctx context.Context, event events.Event) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event)
	}
}

// refreshGauges recomputes the beneficiary gauges. Called under the mutex
// after registry mutations.
func (s *Service) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	list, err := s.store.ListBeneficiaries(ctx)
	if err != nil {
		return
	}
	active := 0
	for _, b := range list {
		if b.Active {
			active++
		}
	}
	s.metrics.SetBeneficiaryCounts(len(list), active)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
