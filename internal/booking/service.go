package booking

import (
	"context"
	"time"

	"github.com/divestreams/booking-core/internal/tenant"
)

// Sessions opens tenant sessions. *tenant.Resolver satisfies it.
type Sessions interface {
	WithSession(ctx context.Context, orgID string, fn func(*tenant.Session) error) error
}

// Options tunes booking creation.
type Options struct {
	// MaxParticipantsPerBooking caps a single request; zero means no cap.
	MaxParticipantsPerBooking int
	// MaxNumberAttempts bounds booking number collisions retried inside one
	// transaction.
	MaxNumberAttempts   int
	NotificationTimeout time.Duration
	// Numbers defaults to RandomNumbers with DefaultNumberPrefix.
	Numbers NumberGenerator
	// Now defaults to time.Now.
	Now func() time.Time
}

const defaultNumberAttempts = 5

// Service creates bookings and moves them through their lifecycle.
type Service struct {
	sessions Sessions
	notifier Notifier
	opts     Options
}

// NewService creates a booking service. A nil notifier disables side effects.
func NewService(sessions Sessions, notifier Notifier, opts Options) *Service {
	if opts.MaxNumberAttempts <= 0 {
		opts.MaxNumberAttempts = defaultNumberAttempts
	}
	if opts.Numbers == nil {
		opts.Numbers = RandomNumbers{Prefix: DefaultNumberPrefix}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{sessions: sessions, notifier: notifier, opts: opts}
}
