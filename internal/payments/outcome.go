package payments

// Outcome describes what handling a provider event did to local state. None
// of the outcomes is an error from the provider's point of view.
type Outcome string

const (
	OutcomeIgnored           Outcome = "ignored"
	OutcomeUncorrelated      Outcome = "uncorrelated"
	OutcomeOrderMissing      Outcome = "order_missing"
	OutcomeAlreadyPaid       Outcome = "already_paid"
	OutcomeFinalized         Outcome = "finalized"
	OutcomeFinalizedFallback Outcome = "finalized_fallback"
	OutcomeAbandoned         Outcome = "abandoned"
	OutcomeFailureRecorded   Outcome = "failure_recorded"
	OutcomeFailureSkipped    Outcome = "failure_skipped"
)

// Finalized reports whether this delivery moved an order into the paid state.
func (o Outcome) Finalized() bool {
	return o == OutcomeFinalized || o == OutcomeFinalizedFallback
}
