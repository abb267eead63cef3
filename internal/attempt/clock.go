package attempt

import (
	"sync"
	"time"
)

// Scheduler abstracts periodic callbacks (the 1s countdown tick and the
// coarser rank refresh) so expiry behaviour is testable without real timers.
type Scheduler interface {
	// Every invokes fn on each elapsed interval until the returned stop
	// function is called. Stop must be safe to call more than once.
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler runs callbacks on real time.Ticker ticks.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// ManualScheduler is test-only: callbacks fire only when Advance is called,
// so countdown and expiry are deterministic.
type ManualScheduler struct {
	mu   sync.Mutex
	jobs []*manualJob
}

type manualJob struct {
	fn      func()
	stopped bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	job := &manualJob{fn: fn}
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		job.stopped = true
		m.mu.Unlock()
	}
}

// Advance fires every registered, unstopped callback once.
func (m *ManualScheduler) Advance() {
	m.mu.Lock()
	pending := make([]*manualJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if !job.stopped {
			pending = append(pending, job)
		}
	}
	m.mu.Unlock()

	for _, job := range pending {
		job.fn()
	}
}

// Active reports how many callbacks are still registered and unstopped.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, job := range m.jobs {
		if !job.stopped {
			n++
		}
	}
	return n
}
