package orientation

import (
	"math"
	"sync"
	"time"
)

// SimSource generates a smooth synthetic rotation for development
// machines without an attached IMU. The heading advances at a fixed
// angular rate with a gentle sinusoidal tilt wobble.
type SimSource struct {
	rate     float64 // degrees per second
	interval time.Duration

	mu      sync.Mutex
	samples chan Sample
	done    chan struct{}
	started bool
}

// NewSimSource returns a simulated source rotating at rate degrees
// per second, emitting a sample every interval.
func NewSimSource(rate float64, interval time.Duration) *SimSource {
	if rate == 0 {
		rate = 30
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &SimSource{rate: rate, interval: interval}
}

func (s *SimSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true
	s.samples = make(chan Sample, 16)
	s.done = make(chan struct{})
	go s.run()
	return nil
}

func (s *SimSource) Samples() <-chan Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

func (s *SimSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	close(s.done)
}

func (s *SimSource) run() {
	start := time.Now()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			close(s.samples)
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start).Seconds()
			sample := Sample{
				Heading:    NormalizeHeading(elapsed * s.rate),
				Tilt:       3 * math.Sin(elapsed*0.7),
				Roll:       2 * math.Cos(elapsed*0.5),
				CapturedAt: now,
			}
			select {
			case s.samples <- sample:
			case <-s.done:
				close(s.samples)
				return
			}
		}
	}
}
