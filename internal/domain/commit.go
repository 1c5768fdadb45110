package domain

import "time"

// ReviewSnapshot is what a review reads inside its transaction.
type ReviewSnapshot struct {
	Card   Card
	Streak Streak
}

// ReviewCommit is what a review writes inside the same transaction.
type ReviewCommit struct {
	Card          Card
	Event         ReviewEvent
	Streak        Streak
	DeckStudiedAt time.Time
}
