package service

import (
	"context"
	"sicakap/pkg/metrics"
	"sicakap/pkg/model"
	"time"
)

// Allocator is the registry's registration-number allocator as the coordinator sees it.
type Allocator interface {
	Book(ctx context.Context) (*model.BookResult, error)
	Release(ctx context.Context, regNumber int) error
	Confirm(ctx context.Context, regNumber int) error
	SwitchDate(ctx context.Context, date model.SystemDate) (*model.SwitchDateResult, error)
	Settings(ctx context.Context) (*model.RegistrationRange, error)
	ResetDaily(ctx context.Context) error
	ResetNumbers(ctx context.Context) error
}

type instrumentedAllocator struct {
	next    Allocator
	metrics *metrics.Metrics
}

// NewInstrumentedAllocator records the latency of every allocator call under its operation name.
func NewInstrumentedAllocator(next Allocator, m *metrics.Metrics) Allocator {
	if m == nil {
		return next
	}
	return &instrumentedAllocator{next: next, metrics: m}
}

func (a *instrumentedAllocator) Book(ctx context.Context) (*model.BookResult, error) {
	defer a.metrics.ObserveRegistry("book", time.Now())
	return a.next.Book(ctx)
}

func (a *instrumentedAllocator) Release(ctx context.Context, regNumber int) error {
	defer a.metrics.ObserveRegistry("release", time.Now())
	return a.next.Release(ctx, regNumber)
}

func (a *instrumentedAllocator) Confirm(ctx context.Context, regNumber int) error {
	defer a.metrics.ObserveRegistry("confirm", time.Now())
	return a.next.Confirm(ctx, regNumber)
}

func (a *instrumentedAllocator) SwitchDate(ctx context.Context, date model.SystemDate) (*model.SwitchDateResult, error) {
	defer a.metrics.ObserveRegistry("switch_date", time.Now())
	return a.next.SwitchDate(ctx, date)
}

func (a *instrumentedAllocator) Settings(ctx context.Context) (*model.RegistrationRange, error) {
	defer a.metrics.ObserveRegistry("settings", time.Now())
	rng, err := a.next.Settings(ctx)
	if err == nil {
		a.metrics.RemainingNumbers.Set(float64(rng.RemainingNumbers))
	}
	return rng, err
}

func (a *instrumentedAllocator) ResetDaily(ctx context.Context) error {
	defer a.metrics.ObserveRegistry("reset_daily", time.Now())
	return a.next.ResetDaily(ctx)
}

func (a *instrumentedAllocator) ResetNumbers(ctx context.Context) error {
	defer a.metrics.ObserveRegistry("reset_numbers", time.Now())
	return a.next.ResetNumbers(ctx)
}
