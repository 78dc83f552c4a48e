package domain

import "time"

// Order is the durable record written after a reservation is confirmed.
// Ref is the order reference handed back by the payment step.
type Order struct {
	Ref       string
	UserID    int64
	Lines     []Line
	Total     float64
	CreatedAt time.Time
}
