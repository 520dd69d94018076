// AngelaMos | 2026
// state.go

package escrow

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusFeePaid   Status = "FEE_PAID"
	StatusFullyPaid Status = "FULLY_PAID"
	StatusVerified  Status = "VERIFIED"
	StatusDisputed  Status = "DISPUTED"
)

// transitions lists every legal forward edge. Verification may skip
// FULLY_PAID because the admin confirms the full amount in one step.
var transitions = map[Status][]Status{
	StatusInitiated: {StatusFeePaid, StatusDisputed},
	StatusFeePaid:   {StatusFullyPaid, StatusVerified, StatusDisputed},
	StatusFullyPaid: {StatusVerified, StatusDisputed},
}

func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusDisputed
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AwaitingVerification reports states an admin can verify from.
func (s Status) AwaitingVerification() bool {
	return s.CanTransitionTo(StatusVerified)
}
