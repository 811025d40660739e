package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/message"
)

var (
	messageColumns      = []string{"id", "sender_id", "recipient_id", "subject", "body", "sent_at", "read"}
	announcementColumns = []string{"id", "course_id", "author_id", "title", "content", "posted_at"}
)

type messageRow struct {
	ID          string    `db:"id"`
	SenderID    string    `db:"sender_id"`
	RecipientID string    `db:"recipient_id"`
	Subject     string    `db:"subject"`
	Body        string    `db:"body"`
	SentAt      time.Time `db:"sent_at"`
	Read        bool      `db:"read"`
}

func (row messageRow) toMessage() message.Message {
	return message.Message(row)
}

type announcementRow struct {
	ID       string    `db:"id"`
	CourseID string    `db:"course_id"`
	AuthorID string    `db:"author_id"`
	Title    string    `db:"title"`
	Content  string    `db:"content"`
	PostedAt time.Time `db:"posted_at"`
}

func (row announcementRow) toAnnouncement() message.Announcement {
	return message.Announcement(row)
}

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	q, args, err := psql.Insert("message").
		Columns("sender_id", "recipient_id", "subject", "body", "sent_at", "read").
		Values(msg.SenderID, msg.RecipientID, msg.Subject, msg.Body, msg.SentAt, msg.Read).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return message.Message{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&msg.ID); err != nil {
		return message.Message{}, errors.Wrap(err, "creating message")
	}
	return msg, nil
}

func (repo *messageRepository) GetMessageByID(ctx context.Context, id string) (message.Message, error) {
	q, args, err := psql.Select(messageColumns...).From("message").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return message.Message{}, errors.Wrap(err, "building query")
	}
	var row messageRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "getting message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) QueryInbox(ctx context.Context, userID string) ([]message.Message, error) {
	return repo.queryMessages(ctx, sq.Eq{"recipient_id": userID})
}

func (repo *messageRepository) QuerySent(ctx context.Context, userID string) ([]message.Message, error) {
	return repo.queryMessages(ctx, sq.Eq{"sender_id": userID})
}

func (repo *messageRepository) queryMessages(ctx context.Context, pred interface{}) ([]message.Message, error) {
	q, args, err := psql.Select(messageColumns...).From("message").Where(pred).OrderBy("sent_at DESC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
	}
	return msgs, nil
}

func (repo *messageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	q, args, err := psql.Select("COUNT(*)").
		From("message").
		Where(sq.Eq{"recipient_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting unread messages")
	}
	return count, nil
}

func (repo *messageRepository) SetMessageRead(ctx context.Context, id string, read bool) (message.Message, error) {
	q, args, err := psql.Update("message").
		Set("read", read).
		Where(sq.Eq{"id": id}).
		Suffix(`RETURNING id, sender_id, recipient_id, subject, body, sent_at, read`).
		ToSql()
	if err != nil {
		return message.Message{}, errors.Wrap(err, "building query")
	}
	var row messageRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "updating message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) CreateAnnouncement(ctx context.Context, ann message.Announcement) (message.Announcement, error) {
	q, args, err := psql.Insert("announcement").
		Columns("course_id", "author_id", "title", "content", "posted_at").
		Values(ann.CourseID, ann.AuthorID, ann.Title, ann.Content, ann.PostedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return message.Announcement{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&ann.ID); err != nil {
		return message.Announcement{}, errors.Wrap(err, "creating announcement")
	}
	return ann, nil
}

func (repo *messageRepository) QueryAnnouncementsByCourses(ctx context.Context, courseIDs []string) ([]message.Announcement, error) {
	if len(courseIDs) == 0 {
		return []message.Announcement{}, nil
	}
	q, args, err := psql.Select(announcementColumns...).
		From("announcement").
		Where(sq.Eq{"course_id": courseIDs}).
		OrderBy("posted_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []announcementRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]message.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.toAnnouncement())
	}
	return anns, nil
}
