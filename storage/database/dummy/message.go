package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/message"
)

type messageRepository struct {
	db *messageTable
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg.ID = uuid.NewString()
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) GetMessageByID(ctx context.Context, id string) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if msg, ok := repo.db.messages[id]; ok {
		return *msg, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) QueryInbox(ctx context.Context, userID string) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]message.Message, 0)
	for _, msg := range repo.db.messages {
		if msg.RecipientID == userID {
			msgs = append(msgs, *msg)
		}
	}
	sortNewestFirst(msgs)
	return msgs, nil
}

func (repo *messageRepository) QuerySent(ctx context.Context, userID string) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]message.Message, 0)
	for _, msg := range repo.db.messages {
		if msg.SenderID == userID {
			msgs = append(msgs, *msg)
		}
	}
	sortNewestFirst(msgs)
	return msgs, nil
}

func (repo *messageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, msg := range repo.db.messages {
		if msg.RecipientID == userID && !msg.Read {
			count++
		}
	}
	return count, nil
}

func (repo *messageRepository) SetMessageRead(ctx context.Context, id string, read bool) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg, ok := repo.db.messages[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	msg.Read = read
	return *msg, nil
}

func (repo *messageRepository) CreateAnnouncement(ctx context.Context, ann message.Announcement) (message.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ann.ID = uuid.NewString()
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *messageRepository) QueryAnnouncementsByCourses(ctx context.Context, courseIDs []string) ([]message.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}

	anns := make([]message.Announcement, 0)
	for _, ann := range repo.db.announcements {
		if _, ok := wanted[ann.CourseID]; ok {
			anns = append(anns, *ann)
		}
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].PostedAt.After(anns[j].PostedAt) })
	return anns, nil
}

func sortNewestFirst(msgs []message.Message) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt.After(msgs[j].SentAt) })
}
