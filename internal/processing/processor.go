// Package processing simulates file transfers. Progress advances on a
// randomized timer; no bytes leave the process.
package processing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// ProgressFunc receives the percentage reached after each tick.
type ProgressFunc func(progress float64)

const (
	DefaultMinInterval = 200 * time.Millisecond
	DefaultMaxInterval = 500 * time.Millisecond
	DefaultMinStep     = 5.0
	DefaultMaxStep     = 20.0
)

// Simulator fakes an upload by advancing progress from 0 to 100. A Simulator
// has no per-upload state and can drive any number of uploads at once.
type Simulator struct {
	minInterval time.Duration
	maxInterval time.Duration
	minStep     float64
	maxStep     float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option tunes a Simulator.
type Option func(*Simulator)

// WithInterval sets the bounds the tick interval is drawn from.
func WithInterval(lo, hi time.Duration) Option {
	return func(s *Simulator) {
		s.minInterval, s.maxInterval = lo, hi
	}
}

// WithStep sets the bounds each progress increment is drawn from.
func WithStep(lo, hi float64) Option {
	return func(s *Simulator) {
		s.minStep, s.maxStep = lo, hi
	}
}

// WithRand makes the simulator deterministic.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) {
		s.rnd = r
	}
}

// New builds a Simulator with the default 200-500ms interval and 5-20 point
// steps.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		minInterval: DefaultMinInterval,
		maxInterval: DefaultMaxInterval,
		minStep:     DefaultMinStep,
		maxStep:     DefaultMaxStep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.minInterval <= 0 {
		s.minInterval = time.Millisecond
	}
	if s.maxInterval < s.minInterval {
		s.maxInterval = s.minInterval
	}
	if s.minStep <= 0 {
		s.minStep = DefaultMinStep
	}
	if s.maxStep < s.minStep {
		s.maxStep = s.minStep
	}
	return s
}

// Upload drives progress for one file until it reaches 100 or ctx is done.
// The interval is drawn once per upload; every tick adds a fresh random step.
// Reports are strictly increasing and the last one is exactly 100.
func (s *Simulator) Upload(ctx context.Context, id string, progress ProgressFunc) error {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	var p float64
	for {
		select {
		case <-ticker.C:
			p += s.step()
			if p >= 100 {
				progress(100)
				return nil
			}
			progress(p)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Simulator) interval() time.Duration {
	span := s.maxInterval - s.minInterval
	if span == 0 {
		return s.minInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minInterval + time.Duration(s.rnd.Int64N(int64(span)))
}

func (s *Simulator) step() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minStep + s.rnd.Float64()*(s.maxStep-s.minStep)
}
