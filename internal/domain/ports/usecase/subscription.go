package usecase

import "context"

// Sweeper is what the periodic workers need from the subscription engine.
type Sweeper interface {
	// ExpireDue flips active subscriptions past their end date to expired.
	ExpireDue(ctx context.Context) (int, error)
	// ResumeDue resumes paused subscriptions whose pause window has ended.
	ResumeDue(ctx context.Context) (int, error)
}
