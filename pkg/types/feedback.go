package types

import (
	"fmt"
	"strings"
	"time"
)

// Feedback is a rating left by a visitor.
type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionID"`
	Rating    int       `json:"rating"`
	Reason    string    `json:"reason"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

const maxFeedbackText = 2000

// Validate checks the rating is within 1..5 and trims the free-text fields.
func (f *Feedback) Validate() error {
	if f.Rating < 1 || f.Rating > 5 {
		return invalid("rating", "must be between 1 and 5")
	}
	f.Reason = strings.TrimSpace(f.Reason)
	f.Comment = strings.TrimSpace(f.Comment)
	if len(f.Reason) > maxFeedbackText {
		return invalid("reason", fmt.Sprintf("must be at most %d bytes", maxFeedbackText))
	}
	if len(f.Comment) > maxFeedbackText {
		return invalid("comment", fmt.Sprintf("must be at most %d bytes", maxFeedbackText))
	}
	return nil
}

// Draft is the last form a session submitted, whether or not it was saved.
type Draft struct {
	SessionID string    `json:"sessionID"`
	Payload   Payload   `json:"payload"`
	UpdatedAt time.Time `json:"updatedAt"`
}
