package message

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("message not found")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessageByID(ctx context.Context, id string) (Message, error)
		// QueryInbox returns messages received by userID, newest first.
		QueryInbox(ctx context.Context, userID string) ([]Message, error)
		// QuerySent returns messages sent by userID, newest first.
		QuerySent(ctx context.Context, userID string) ([]Message, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		SetMessageRead(ctx context.Context, id string, read bool) (Message, error)

		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		// QueryAnnouncementsByCourses returns announcements of the given courses, newest first.
		QueryAnnouncementsByCourses(ctx context.Context, courseIDs []string) ([]Announcement, error)
	}

	ServiceInterface interface {
		Send(ctx context.Context, sender user.User, cm ComposeMessage) (Message, error)
		Inbox(ctx context.Context, usr user.User) ([]Message, error)
		Sent(ctx context.Context, usr user.User) ([]Message, error)
		// Get returns the message when usr is its sender or recipient; viewing as
		// the recipient marks it read.
		Get(ctx context.Context, usr user.User, id string) (Message, error)
		MarkRead(ctx context.Context, usr user.User, id string) (Message, error)
		UnreadCount(ctx context.Context, usr user.User) (int, error)
		Recipients(ctx context.Context, usr user.User) ([]user.User, error)

		PostAnnouncement(ctx context.Context, author user.User, na NewAnnouncement) (Announcement, error)
		Announcements(ctx context.Context, usr user.User) ([]Announcement, error)
	}

	service struct {
		repo     Repository
		resolver *access.Resolver
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, resolver *access.Resolver) *service {
	return &service{
		repo:     repo,
		resolver: resolver,
	}
}

// Send delivers a message to a recipient within the sender's permitted-recipient
// scope; anyone else is off-limits.
func (svc *service) Send(ctx context.Context, sender user.User, cm ComposeMessage) (Message, error) {
	ok, err := svc.resolver.CanMessage(ctx, sender, cm.RecipientID)
	if err != nil {
		return Message{}, errors.Wrap(err, "resolving permitted recipients")
	}
	if !ok {
		return Message{}, core.ErrPermissionDenied
	}

	msg := Message{
		SenderID:    sender.ID,
		RecipientID: cm.RecipientID,
		Subject:     cm.Subject,
		Body:        cm.Body,
		SentAt:      time.Now().UTC(),
	}
	return svc.repo.CreateMessage(ctx, msg)
}

func (svc *service) Inbox(ctx context.Context, usr user.User) ([]Message, error) {
	return svc.repo.QueryInbox(ctx, usr.ID)
}

func (svc *service) Sent(ctx context.Context, usr user.User) ([]Message, error) {
	return svc.repo.QuerySent(ctx, usr.ID)
}

func (svc *service) Get(ctx context.Context, usr user.User, id string) (Message, error) {
	msg, err := svc.repo.GetMessageByID(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if msg.SenderID != usr.ID && msg.RecipientID != usr.ID {
		return Message{}, ErrNotFound
	}
	if msg.RecipientID == usr.ID && !msg.Read {
		return svc.repo.SetMessageRead(ctx, msg.ID, true)
	}
	return msg, nil
}

// MarkRead marks a received message read; only the recipient may trigger it and
// repeated calls are no-ops.
func (svc *service) MarkRead(ctx context.Context, usr user.User, id string) (Message, error) {
	msg, err := svc.repo.GetMessageByID(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if msg.RecipientID != usr.ID {
		return Message{}, core.ErrPermissionDenied
	}
	if msg.Read {
		return msg, nil
	}
	return svc.repo.SetMessageRead(ctx, msg.ID, true)
}

func (svc *service) UnreadCount(ctx context.Context, usr user.User) (int, error) {
	return svc.repo.CountUnread(ctx, usr.ID)
}

func (svc *service) Recipients(ctx context.Context, usr user.User) ([]user.User, error) {
	return svc.resolver.PermittedRecipients(ctx, usr)
}

// PostAnnouncement posts to a course the author instructs or assists.
func (svc *service) PostAnnouncement(ctx context.Context, author user.User, na NewAnnouncement) (Announcement, error) {
	crs, err := svc.resolver.CourseByID(ctx, na.CourseID)
	if err != nil {
		return Announcement{}, err
	}
	ok, err := svc.resolver.CanGrade(ctx, author, crs)
	if err != nil {
		return Announcement{}, errors.Wrap(err, "checking course staff")
	}
	if !ok {
		return Announcement{}, core.ErrPermissionDenied
	}

	ann := Announcement{
		CourseID: crs.ID,
		AuthorID: author.ID,
		Title:    na.Title,
		Content:  na.Content,
		PostedAt: time.Now().UTC(),
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

// Announcements lists the announcements of the caller's permitted scope.
func (svc *service) Announcements(ctx context.Context, usr user.User) ([]Announcement, error) {
	scope, err := svc.resolver.Scope(ctx, usr)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return []Announcement{}, nil
	}
	return svc.repo.QueryAnnouncementsByCourses(ctx, scope.CourseIDs())
}
