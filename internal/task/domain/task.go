package domain

import "time"

// TaskStatus represents the current state of a task. Status only ever
// advances open -> matched -> completed, never backwards.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusMatched   TaskStatus = "matched"
	TaskStatusCompleted TaskStatus = "completed"
)

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a task's exact location. It is only disclosed into a chat
// after the counterparty approved a location request.
type Location struct {
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
}

// Task is a posted job on the marketplace.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Status         TaskStatus `json:"status"`
	CreatorID      string     `json:"creator_id"`
	CreatorName    string     `json:"creator_name"`
	AssignedUserID string     `json:"assigned_user_id,omitempty"`
	LocationShared bool       `json:"location_shared"`
	Location       Location   `json:"location"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ApplicationStatus represents the state of one application.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is one user's offer to take over a task. At most one
// application per task ever becomes accepted; the task's single
// AssignedUserID enforces that.
type Application struct {
	ID            string            `json:"id"`
	TaskID        string            `json:"task_id"`
	ApplicantID   string            `json:"applicant_id"`
	ApplicantName string            `json:"applicant_name"`
	Message       string            `json:"message"`
	Status        ApplicationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Comment is a flat comment row on a task. ParentID is empty for root
// comments; replies reference their root. The two-level tree is a pure
// client-side projection, the rows themselves are never restructured.
type Comment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	ParentID   string    `json:"parent_id,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommentNode is a root comment with its replies sorted ascending by time.
type CommentNode struct {
	Comment
	Replies []Comment `json:"replies"`
}
