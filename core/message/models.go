package message

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Message is a point-to-point message between two users.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sent_at"` // UTC
	Read        bool      `json:"read"`
}

// Announcement is a course-wide post by the course's instructor or a TA.
type Announcement struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	AuthorID string    `json:"author_id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"` // UTC
}

// ComposeMessage contains information needed to send a Message.
type ComposeMessage struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	Subject     string `json:"subject" validate:"required,max=128"`
	Body        string `json:"body" validate:"required"`
}

func (cm *ComposeMessage) Validate(validate *validator.Validate) error {
	cm.RecipientID = core.CleanString(cm.RecipientID, true /* lower */)
	cm.Subject = core.CleanString(cm.Subject)
	cm.Body = core.CleanString(cm.Body)
	return validate.Struct(cm)
}

// NewAnnouncement contains information needed to post an Announcement.
type NewAnnouncement struct {
	CourseID string `json:"course_id" validate:"required,uuid4"`
	Title    string `json:"title" validate:"required,max=128"`
	Content  string `json:"content" validate:"required"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.CourseID = core.CleanString(na.CourseID, true /* lower */)
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	return validate.Struct(na)
}
