package orchestrator

import "fmt"

// State is a payment attempt's position in its lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateConnecting      State = "connecting"
	StateNetworkChecking State = "network_checking"
	StateSubmitting      State = "submitting"
	StatePendingOnChain  State = "pending_on_chain"
	StateConfirmed       State = "confirmed"
	StateReconciling     State = "reconciling"
	StateDone            State = "done"
	StateReconcileFailed State = "reconcile_failed"
	StateFailed          State = "failed"
)

var transitions = map[State][]State{
	StateIdle:            {StateConnecting},
	StateConnecting:      {StateNetworkChecking, StateFailed},
	StateNetworkChecking: {StateSubmitting, StateFailed},
	StateSubmitting:      {StatePendingOnChain, StateFailed},
	StatePendingOnChain:  {StateConfirmed, StateFailed},
	StateConfirmed:       {StateReconciling},
	StateReconciling:     {StateDone, StateReconcileFailed},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition exists from s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
