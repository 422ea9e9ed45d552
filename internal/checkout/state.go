package checkout

type State string

const (
	StateIdle               State = "IDLE"
	StateValidating         State = "VALIDATING"
	StateAuthorizingPayment State = "AUTHORIZING_PAYMENT"
	StatePlacingOrder       State = "PLACING_ORDER"
	StateSucceeded          State = "SUCCEEDED"
	StateFailed             State = "FAILED"
)

var transitions = map[State][]State{
	StateIdle:               {StateValidating},
	StateValidating:         {StateAuthorizingPayment, StateFailed},
	StateAuthorizingPayment: {StatePlacingOrder, StateFailed},
	StatePlacingOrder:       {StateSucceeded, StateFailed},
}

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}

// CanTransitionTo reports whether next directly follows s.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
