package ho

import (
	"sync"
)

// Trials is the introspectable history of a Minimize run. It is safe for
// concurrent reads while the run appends to it.
type Trials struct {
	mu     sync.RWMutex
	trials []Trial
}

// add appends a trial. Trials are never modified after being added.
func (t *Trials) add(trial Trial) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trial.Sample = trial.Sample.Clone()
	t.trials = append(t.trials, trial)
}

// completed returns the successful trials, in order.
func (t *Trials) completed() []Trial {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Trial, 0, len(t.trials))
	for _, trial := range t.trials {
		if trial.Status == StatusOK {
			out = append(out, trial)
		}
	}

	return out
}

// Len returns the number of recorded trials, failed ones included.
func (t *Trials) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.trials)
}

// All returns a copy of every recorded trial in evaluation order.
func (t *Trials) All() []Trial {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Trial, len(t.trials))
	for i, trial := range t.trials {
		trial.Sample = trial.Sample.Clone()
		out[i] = trial
	}

	return out
}

// Losses returns the loss of every successful trial in evaluation order.
func (t *Trials) Losses() []float64 {
	completed := t.completed()

	losses := make([]float64, len(completed))
	for i, trial := range completed {
		losses[i] = trial.Loss
	}

	return losses
}

// Best returns the successful trial with the lowest loss. Ties go to the
// earliest trial.
func (t *Trials) Best() (Trial, error) {
	completed := t.completed()
	if len(completed) == 0 {
		return Trial{}, ErrNoTrials
	}

	best := completed[0]
	for _, trial := range completed[1:] {
		if trial.Loss < best.Loss {
			best = trial
		}
	}

	best.Sample = best.Sample.Clone()

	return best, nil
}
