package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	n.ID = newID()
	repo.db.notifications[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, schoolID, userID string) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.SchoolID == schoolID && (n.UserID == "" || n.UserID == userID) {
			notifs = append(notifs, n)
		}
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, schoolID, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if n, ok := repo.db.notifications[id]; ok && n.SchoolID == schoolID {
		return n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) UpdateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if orig, ok := repo.db.notifications[n.ID]; !ok || orig.SchoolID != n.SchoolID {
		return notification.Notification{}, notification.ErrNotFound
	}
	repo.db.notifications[n.ID] = n
	return n, nil
}
