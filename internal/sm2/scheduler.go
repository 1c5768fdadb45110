package sm2

import "time"

// Scheduler turns UI ratings into SM-2 state transitions.
type Scheduler struct {
	policy Policy
}

// NewScheduler creates a Scheduler with the given rating policy. The
// policy is used as given; callers wanting the defaults pass DefaultPolicy.
func NewScheduler(p Policy) (*Scheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{policy: p}, nil
}

// Policy returns the rating policy in use.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// ScheduleReview computes the state that follows reviewing a card with
// rating at now. The input state is not modified.
func (s *Scheduler) ScheduleReview(rating Rating, current State, now time.Time) (State, Quality, error) {
	q, err := s.policy.Quality(rating)
	if err != nil {
		return current, 0, err
	}
	return Next(q, current, now), q, nil
}
