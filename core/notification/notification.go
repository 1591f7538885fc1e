// Package notification persists notifications and pushes them to the school or user topics and by email.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const (
	KindReportGenerated = "report_generated"
	KindBulletinReady   = "bulletin_ready"
)

var ErrNotFound = core.NewNotFoundError("notification")

// Notification is addressed to a whole school, or to a single user when UserID is set.
type Notification struct {
	ID        string     `json:"id"`
	SchoolID  string     `json:"school_id"`
	UserID    string     `json:"user_id,omitempty"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

// Topic is the broker topic the notification is published on.
func (n Notification) Topic() string {
	if n.UserID != "" {
		return UserTopic(n.UserID)
	}
	return SchoolTopic(n.SchoolID)
}

func SchoolTopic(schoolID string) string { return "school:" + schoolID }
func UserTopic(userID string) string     { return "user:" + userID }

// Topics returns the topics `p` listens to.
func Topics(p user.Principal) []string {
	return []string{SchoolTopic(p.Ident().SchoolID), UserTopic(p.Ident().UserID)}
}

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// QueryNotifications returns the notifications of the school addressed to `userID` or to the whole school.
		QueryNotifications(ctx context.Context, schoolID, userID string) ([]Notification, error)
		GetNotification(ctx context.Context, schoolID, id string) (Notification, error)
		UpdateNotification(ctx context.Context, n Notification) (Notification, error)
	}

	Service struct {
		repo   Repository
		broker core.Broker
		mailer core.EmailService
		logger core.Logger
	}
)

func NewService(repo Repository, broker core.Broker, mailer core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, broker: broker, mailer: mailer, logger: logger}
}

// Notify persists `n`, then publishes it and sends `emails`.
// A failed publish is logged; the notification stays persisted.
func (svc *Service) Notify(ctx context.Context, n Notification, emails ...*core.EmailMessage) (Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = core.NowFunc()
	}
	n, err := svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, err := json.Marshal(n)
		if err != nil {
			return errors.Wrap(err, "encoding notification")
		}
		return errors.Wrapf(svc.broker.Publish(gctx, n.Topic(), payload), "publishing to %s", n.Topic())
	})
	if len(emails) > 0 && svc.mailer != nil {
		g.Go(func() error {
			svc.mailer.SendMessages(emails...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		svc.logger.Error("notifying", err)
	}
	return n, nil
}

// List returns the notifications visible to `p`, newest first.
func (svc *Service) List(ctx context.Context, p user.Principal) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, p.Ident().SchoolID, p.Ident().UserID)
}

// MarkRead marks a notification visible to `p` as read. Already read notifications are left as is.
func (svc *Service) MarkRead(ctx context.Context, p user.Principal, id string) (Notification, error) {
	n, err := svc.repo.GetNotification(ctx, p.Ident().SchoolID, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != "" && n.UserID != p.Ident().UserID {
		return Notification{}, ErrNotFound
	}
	if n.ReadAt != nil {
		return n, nil
	}
	now := core.NowFunc()
	n.ReadAt = &now
	return svc.repo.UpdateNotification(ctx, n)
}

// Subscribe opens a broker subscription on the topics of `p`.
func (svc *Service) Subscribe(ctx context.Context, p user.Principal) (core.Subscription, error) {
	return svc.broker.Subscribe(ctx, Topics(p)...)
}
