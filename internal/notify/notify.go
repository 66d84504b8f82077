// Package notify delivers in-app notifications when a match is created.
//
// A Dispatcher builds one notification per side of the match and hands each
// to a primary Notifier (the notifications table). Mirrors such as the Redis
// and RabbitMQ publishers receive a copy; their failures are logged and do
// not affect the delivery result.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/scoring"
)

// KindNewMatch is the notification type written for match creation.
const KindNewMatch = "new_match"

// Data is the structured payload attached to a match notification.
type Data struct {
	MatchID     int64   `json:"match_id"`
	CandidateID int64   `json:"candidate_id,omitempty"`
	JobID       int64   `json:"job_id"`
	CompanyName string  `json:"company_name,omitempty"`
	MatchScore  float64 `json:"match_score"`
	Grade       string  `json:"grade"`
}

// Notification is one row of the notifications table.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"userId"`
	Kind      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Data      Data      `json:"data"`
	ActionURL string    `json:"actionUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier persists or forwards a notification.
type Notifier interface {
	CreateNotification(ctx context.Context, n Notification) error
}

// MatchCreated is emitted once per newly persisted match.
type MatchCreated struct {
	Match     model.Match
	Candidate model.Candidate
	Job       model.Job
}

// Delivery carries the per-side outcome of a dispatch. A nil error means the
// side was notified.
type Delivery struct {
	Company   error
	Candidate error
}

// Dispatcher turns MatchCreated events into notifications.
type Dispatcher struct {
	primary Notifier
	mirrors []Notifier
	log     *zap.Logger
	now     func() time.Time
}

// NewDispatcher returns a Dispatcher writing to primary and copying every
// successful notification to mirrors.
func NewDispatcher(primary Notifier, log *zap.Logger, mirrors ...Notifier) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		primary: primary,
		mirrors: mirrors,
		log:     log.With(zap.String("component", "notify")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// MatchCreated notifies the company owning the job and the candidate.
func (d *Dispatcher) MatchCreated(ctx context.Context, ev MatchCreated) Delivery {
	return Delivery{
		Company:   d.send(ctx, CompanyNotification(ev, d.now())),
		Candidate: d.send(ctx, CandidateNotification(ev, d.now())),
	}
}

func (d *Dispatcher) send(ctx context.Context, n Notification) error {
	if n.UserID == 0 {
		return fmt.Errorf("notify %s: recipient has no user id", n.Kind)
	}
	if err := d.primary.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("notify user %d: %w", n.UserID, err)
	}
	for _, m := range d.mirrors {
		if err := m.CreateNotification(ctx, n); err != nil {
			d.log.Warn("mirror notification failed",
				zap.String("notification_id", n.ID.String()),
				zap.Int64("match_id", n.Data.MatchID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// CompanyNotification builds the notification sent to the job owner.
func CompanyNotification(ev MatchCreated, at time.Time) Notification {
	name := ev.Candidate.FullName
	if name == "" {
		name = "A candidate"
	}
	return Notification{
		ID:     uuid.New(),
		UserID: ev.Job.CompanyUserID,
		Kind:   KindNewMatch,
		Title:  "New matching candidate",
		Message: fmt.Sprintf("%s matches your job offer '%s' (Match: %s%%)",
			name, ev.Job.Title, formatScore(ev.Match.Score)),
		Data: Data{
			MatchID:     ev.Match.ID,
			CandidateID: ev.Candidate.ID,
			JobID:       ev.Job.ID,
			MatchScore:  ev.Match.Score,
			Grade:       scoring.Grade(ev.Match.Score),
		},
		ActionURL: actionURL(ev.Match.ID),
		CreatedAt: at,
	}
}

// CandidateNotification builds the notification sent to the candidate.
func CandidateNotification(ev MatchCreated, at time.Time) Notification {
	company := ev.Job.CompanyName
	if company == "" {
		company = "a company"
	}
	return Notification{
		ID:     uuid.New(),
		UserID: ev.Candidate.UserID,
		Kind:   KindNewMatch,
		Title:  "New opportunity detected",
		Message: fmt.Sprintf("The position '%s' at %s matches your profile (Match: %s%%)",
			ev.Job.Title, company, formatScore(ev.Match.Score)),
		Data: Data{
			MatchID:     ev.Match.ID,
			JobID:       ev.Job.ID,
			CompanyName: ev.Job.CompanyName,
			MatchScore:  ev.Match.Score,
			Grade:       scoring.Grade(ev.Match.Score),
		},
		ActionURL: actionURL(ev.Match.ID),
		CreatedAt: at,
	}
}

func actionURL(matchID int64) string {
	return fmt.Sprintf("/dashboard/matches/%d", matchID)
}

func formatScore(s float64) string {
	return fmt.Sprintf("%.1f", s)
}
