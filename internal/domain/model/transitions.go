package model

// Transition is a directed edge of the subscription state machine.
type Transition struct {
	From SubscriptionStatus
	To   SubscriptionStatus
}

var validTransitions = map[Transition]bool{
	{SubscriptionStatusActive, SubscriptionStatusPaused}:    true,
	{SubscriptionStatusPaused, SubscriptionStatusActive}:    true,
	{SubscriptionStatusActive, SubscriptionStatusCancelled}: true,
	{SubscriptionStatusPaused, SubscriptionStatusCancelled}: true,
	{SubscriptionStatusActive, SubscriptionStatusExpired}:   true,
}

// CanTransition reports whether an ordinary operation may move from -> to.
// Renew is the only way out of a terminal status and is handled by Renew.
func CanTransition(from, to SubscriptionStatus) bool {
	return validTransitions[Transition{From: from, To: to}]
}
