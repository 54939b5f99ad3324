package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultNotificationLimit = 20

type NotificationService struct {
	notifications models.NotificationRepo
	users         models.UserRepo
	dispatcher    *Dispatcher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

func NewNotificationService(
	notifications models.NotificationRepo,
	users models.UserRepo,
	dispatcher *Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// AddressTokens returns the distinct non-empty names and addresses of every
// place in loc.
func AddressTokens(loc models.JobLocation) []string {
	var tokens []string
	seen := map[string]bool{}
	for _, p := range loc.Places() {
		for _, s := range []string{p.Name, p.FullAddress} {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// NotifyJobCreated queues the job_created fan-out for job.
func (ns *NotificationService) NotifyJobCreated(job *models.Job) {
	snapshot := *job
	ns.dispatcher.Submit("job_created:"+job.ID.Hex(), func(ctx context.Context) error {
		_, err := ns.FanOutJobCreated(ctx, &snapshot)
		return err
	})
}

// FanOutJobCreated writes one job_created notification per matching user and
// returns how many were written.
func (ns *NotificationService) FanOutJobCreated(ctx context.Context, job *models.Job) (int, error) {
	tokens := AddressTokens(job.Location)
	if len(tokens) == 0 {
		return 0, nil
	}
	recipients, err := ns.users.FindProfileMatches(ctx, tokens, job.PostedBy)
	if err != nil {
		return 0, fmt.Errorf("finding recipients for job %s: %w", job.ID.Hex(), err)
	}
	if len(recipients) == 0 {
		ns.logger.Debug("no recipients for new job", "job_id", job.ID.Hex())
		return 0, nil
	}

	notes := make([]*models.Notification, 0, len(recipients))
	for _, r := range recipients {
		notes = append(notes, jobNotification(r.ID, job, models.NotificationJobCreated,
			"New job near you",
			fmt.Sprintf("%q is available at %s.", job.Title, job.Location.DisplayAddress()),
		))
	}
	n, err := ns.notifications.InsertNotifications(ctx, notes)
	if err != nil {
		return 0, fmt.Errorf("writing job_created notifications for job %s: %w", job.ID.Hex(), err)
	}
	ns.count(models.NotificationJobCreated, n)
	ns.logger.Info("job created notifications sent", "job_id", job.ID.Hex(), "recipients", n)
	return n, nil
}

// NotifyInterest queues a job_interest notification to the job owner.
func (ns *NotificationService) NotifyInterest(job *models.Job, interestedID primitive.ObjectID) {
	snapshot := *job
	ns.dispatcher.Submit("job_interest:"+job.ID.Hex(), func(ctx context.Context) error {
		return ns.SendInterestNotification(ctx, &snapshot, interestedID)
	})
}

func (ns *NotificationService) SendInterestNotification(ctx context.Context, job *models.Job, interestedID primitive.ObjectID) error {
	name := "Someone"
	if user, err := ns.users.GetUserByID(ctx, interestedID); err == nil {
		name = user.DisplayName()
	} else if !models.IsNotFound(err) {
		return fmt.Errorf("loading interested user %s: %w", interestedID.Hex(), err)
	}

	note := jobNotification(job.PostedBy, job, models.NotificationJobInterest,
		"New interest in your job",
		fmt.Sprintf("%s is interested in your job %q.", name, job.Title),
	)
	n, err := ns.notifications.InsertNotifications(ctx, []*models.Notification{note})
	if err != nil {
		return fmt.Errorf("writing job_interest notification for job %s: %w", job.ID.Hex(), err)
	}
	ns.count(models.NotificationJobInterest, n)
	return nil
}

func jobNotification(recipient primitive.ObjectID, job *models.Job, kind models.NotificationType, title, message string) *models.Notification {
	return &models.Notification{
		Recipient:            recipient,
		Type:                 kind,
		Title:                title,
		Message:              message,
		RelatedEntityType:    models.RelatedEntityJob,
		RelatedEntityID:      job.ID,
		NavigationIdentifier: job.ID.Hex(),
	}
}

func (ns *NotificationService) count(kind models.NotificationType, n int) {
	if ns.metrics != nil && n > 0 {
		ns.metrics.NotificationsSent.WithLabelValues(string(kind)).Add(float64(n))
	}
}

type NotificationPage struct {
	Notifications []*models.NotificationView `json:"notifications"`
	Pagination    models.Pagination          `json:"pagination"`
	UnreadCount   int64                      `json:"unreadCount"`
}

func (ns *NotificationService) ListNotifications(ctx context.Context, userID primitive.ObjectID, isRead *bool, sort models.SortSpec, page models.PageSpec) (*NotificationPage, error) {
	notes, total, err := ns.notifications.ListNotifications(ctx, models.NotificationFilter{Recipient: userID, IsRead: isRead}, sort, page)
	if err != nil {
		return nil, err
	}
	unread, err := ns.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: notes,
		Pagination:    models.NewPagination(page.Page, page.Limit, total),
		UnreadCount:   unread,
	}, nil
}

func (ns *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return ns.notifications.CountUnread(ctx, userID)
}

func (ns *NotificationService) MarkAsRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	note, err := ns.ownedNotification(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if note.IsRead {
		return note, nil
	}
	return ns.notifications.MarkRead(ctx, id, ns.now())
}

func (ns *NotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return ns.notifications.MarkAllRead(ctx, userID, ns.now())
}

func (ns *NotificationService) DeleteNotification(ctx context.Context, id, userID primitive.ObjectID) error {
	if _, err := ns.ownedNotification(ctx, id, userID); err != nil {
		return err
	}
	return ns.notifications.DeleteNotification(ctx, id)
}

func (ns *NotificationService) ownedNotification(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	note, err := ns.notifications.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.Recipient != userID {
		return nil, models.NewAuthorizationError("not authorized to access this notification")
	}
	return note, nil
}
