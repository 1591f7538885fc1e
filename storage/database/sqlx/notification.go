package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/notification"
)

var notificationColumns = []string{"id", "school_id", "user_id", "kind", "title", "body", "created_at", "read_at"}

type notificationRow struct {
	ID        string      `db:"id"`
	SchoolID  string      `db:"school_id"`
	UserID    null.String `db:"user_id"`
	Kind      string      `db:"kind"`
	Title     string      `db:"title"`
	Body      string      `db:"body"`
	CreatedAt time.Time   `db:"created_at"`
	ReadAt    null.Time   `db:"read_at"`
}

func (r notificationRow) notification() notification.Notification {
	n := notification.Notification{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		UserID:    r.UserID.String,
		Kind:      r.Kind,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ReadAt.Valid {
		readAt := r.ReadAt.Time.UTC()
		n.ReadAt = &readAt
	}
	return n
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("notification").Columns(notificationColumns...).Values(
		n.ID, n.SchoolID, nullString(n.UserID), n.Kind, n.Title, n.Body, n.CreatedAt, null.TimeFromPtr(n.ReadAt),
	))
	return n, errors.Wrap(err, "inserting notification")
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, schoolID, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	err := selectAll(ctx, repo.db, &rows, psql.Select(notificationColumns...).From("notification").
		Where(sq.Eq{"school_id": schoolID}).
		Where(sq.Or{sq.Eq{"user_id": nil}, sq.Eq{"user_id": userID}}).
		OrderBy("created_at DESC"))
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.notification())
	}
	return notifs, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, schoolID, id string) (notification.Notification, error) {
	var row notificationRow
	err := get(ctx, repo.db, &row, psql.Select(notificationColumns...).From("notification").
		Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return notification.Notification{}, notFound(err, notification.ErrNotFound)
	}
	return row.notification(), nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	cnt, err := exec(ctx, repo.db, psql.Update("notification").
		Set("read_at", null.TimeFromPtr(n.ReadAt)).
		Where(sq.Eq{"school_id": n.SchoolID, "id": n.ID}))
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if cnt == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return n, nil
}
