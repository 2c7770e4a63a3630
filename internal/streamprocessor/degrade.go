package streamprocessor

import (
	"sync"
	"time"

	"vigil/pkg/platform/circuit"
)

// degradeController tracks how long the state store has been unavailable
// and decides, per spec §4.4, whether stateful evaluation should still run
// in best-effort local-memory mode or has exceeded its one-refresh-interval
// grace period and must suspend until the store recovers.
type degradeController struct {
	breaker    *circuit.Breaker
	grace      time.Duration
	now        func() time.Time

	mu          sync.Mutex
	degradedAt  time.Time
	suspended   bool
	alertRaised bool
}

func newDegradeController(grace time.Duration) *degradeController {
	if grace <= 0 {
		grace = DefaultRefreshInterval
	}
	return &degradeController{
		breaker: circuit.New("statestore", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(1)),
		grace:   grace,
		now:     time.Now,
	}
}

// mode is the outcome of a store-access decision.
type mode int

const (
	modeNormal mode = iota
	modeDegraded
	modeSuspended
)

// recordFailure registers a state-store failure and returns the resulting
// mode, plus whether a systemic "degraded" alert should be raised for this
// transition (raised exactly once per outage episode, when the grace
// period expires).
func (d *degradeController) recordFailure() (m mode, raiseAlert bool) {
	_, change := d.breaker.RecordFailure()
	d.mu.Lock()
	defer d.mu.Unlock()

	if change.Opened {
		d.degradedAt = d.now()
		d.suspended = false
		d.alertRaised = false
	}
	if !d.breaker.IsOpen() {
		return modeNormal, false
	}
	if d.suspended {
		return modeSuspended, false
	}
	if d.now().Sub(d.degradedAt) > d.grace {
		d.suspended = true
		if !d.alertRaised {
			d.alertRaised = true
			return modeSuspended, true
		}
		return modeSuspended, false
	}
	return modeDegraded, false
}

// recordSuccess registers a successful state-store access, clearing any
// degrade/suspend state once the breaker fully closes.
func (d *degradeController) recordSuccess() {
	_, change := d.breaker.RecordSuccess()
	if !change.Closed {
		return
	}
	d.mu.Lock()
	d.suspended = false
	d.alertRaised = false
	d.degradedAt = time.Time{}
	d.mu.Unlock()
}

func (d *degradeController) isOpen() bool {
	return d.breaker.IsOpen()
}
