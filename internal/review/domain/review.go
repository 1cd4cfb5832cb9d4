package domain

import "time"

// Review is one user's rating of the counterparty after a completed task.
// Unique per (task, reviewer); the usecase checks for an existing row
// before inserting.
type Review struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ReviewerID string    `json:"reviewer_id"`
	UserID     string    `json:"user_id"` // reviewee
	Rating     int       `json:"rating"`  // 1..5
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
