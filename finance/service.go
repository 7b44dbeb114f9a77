/*
service.go - Engine entry point

PURPOSE:
  Service bundles the engine's collaborators: the RecordStore it
  persists through, the Clock that answers "is this day in the future",
  the campus standards resolver, and a structured logger. Every
  operation in the package hangs off Service so tests can swap any
  collaborator.

SEE ALSO:
  - store.go: the RecordStore contract
  - clock.go: Clock and FixedClock
*/
package finance

import "go.uber.org/zap"

// Service is the fee and refund engine. Construct with NewService;
// the zero value is not usable.
type Service struct {
	Store     RecordStore
	Clock     Clock
	Standards *StandardsResolver
	Log       *zap.Logger
}

// Option customizes a Service at construction time.
type Option func(*Service)

// WithClock replaces the system clock, used by tests to pin "now".
func WithClock(c Clock) Option { return func(s *Service) { s.Clock = c } }

// WithStandards replaces the fee-standard table.
func WithStandards(r *StandardsResolver) Option { return func(s *Service) { s.Standards = r } }

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.Log = l } }

// NewService builds an engine over the given store with the 2025
// standards table, the system clock, and a no-op logger.
func NewService(store RecordStore, opts ...Option) *Service {
	s := &Service{
		Store:     store,
		Clock:     SystemClock{},
		Standards: NewStandardsResolver(),
		Log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CampusFeeStandard resolves a campus name to its fee schedule.
func (s *Service) CampusFeeStandard(campus string) (*CampusFeeStandard, error) {
	return s.Standards.Resolve(campus)
}

// StudentActualFees returns the student's monthly fee breakdown after
// discounts, using the fallback standard when the campus is unknown.
func (s *Service) StudentActualFees(student *Student) ActualFees {
	return ComputeActualFees(student, s.Standards.ResolveOrDefault(student.Campus))
}
