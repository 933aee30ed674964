package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Checker represents a dependency health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Result is the outcome of one Checker.
type Result struct {
	Name string
	Err  error
}

// ReadinessUseCase describes readiness verification.
type ReadinessUseCase interface {
	// Ready fails when any dependency is unhealthy; the error names each one.
	Ready(ctx context.Context) error
	// Report runs every checker concurrently and returns results in
	// registration order.
	Report(ctx context.Context) []Result
}

type service struct {
	checkers []Checker
}

// NewService aggregates dependency checkers. Nil checkers are skipped so
// optional dependencies can be passed unconditionally.
func NewService(checkers ...Checker) ReadinessUseCase {
	active := make([]Checker, 0, len(checkers))
	for _, ch := range checkers {
		if ch != nil {
			active = append(active, ch)
		}
	}
	return &service{checkers: active}
}

func (s *service) Report(ctx context.Context) []Result {
	results := make([]Result, len(s.checkers))
	var wg sync.WaitGroup
	for i, ch := range s.checkers {
		wg.Add(1)
		go func(i int, ch Checker) {
			defer wg.Done()
			results[i] = Result{Name: ch.Name(), Err: ch.Check(ctx)}
		}(i, ch)
	}
	wg.Wait()
	return results
}

func (s *service) Ready(ctx context.Context) error {
	var errs []error
	for _, r := range s.Report(ctx) {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}
