package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/divestreams/booking-core/internal/db/models"
)

// Event names carried in webhook payloads.
const (
	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
)

// WebhookEvent is the JSON body posted for each booking event.
type WebhookEvent struct {
	Event          string          `json:"event"`
	OrganizationID string          `json:"organizationId"`
	OccurredAt     time.Time       `json:"occurredAt"`
	FromStatus     Status          `json:"fromStatus,omitempty"`
	Booking        *models.Booking `json:"booking"`
}

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	URL string
	// Token, when set, is sent as a bearer Authorization header.
	Token   string
	Headers map[string]string
	// Timeout bounds each delivery; the dispatch deadline applies as well.
	Timeout time.Duration
}

// WebhookNotifier posts booking events to an HTTP endpoint. Any status of 400
// or above is reported as a failure.
type WebhookNotifier struct {
	cfg    WebhookConfig
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}, nil
}

// BookingCreated posts a booking_created event.
func (n *WebhookNotifier) BookingCreated(ctx context.Context, orgID string, b *models.Booking) error {
	return n.post(ctx, WebhookEvent{
		Event:          EventBookingCreated,
		OrganizationID: orgID,
		OccurredAt:     n.now().UTC(),
		Booking:        b,
	})
}

// BookingStatusChanged posts a booking_status_changed event.
func (n *WebhookNotifier) BookingStatusChanged(ctx context.Context, orgID string, b *models.Booking, from Status) error {
	return n.post(ctx, WebhookEvent{
		Event:          EventBookingStatusChanged,
		OrganizationID: orgID,
		OccurredAt:     n.now().UTC(),
		FromStatus:     from,
		Booking:        b,
	})
}

func (n *WebhookNotifier) post(ctx context.Context, ev WebhookEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Booking-Event", ev.Event)
	for k, v := range n.cfg.Headers {
		req.Header.Set(k, v)
	}
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// MultiNotifier fans an event out to every notifier. A failing notifier does
// not stop the rest; all failures are joined into the returned error.
type MultiNotifier []Notifier

// BookingCreated notifies every member.
func (m MultiNotifier) BookingCreated(ctx context.Context, orgID string, b *models.Booking) error {
	var errs []error
	for _, n := range m {
		if err := n.BookingCreated(ctx, orgID, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BookingStatusChanged notifies every member.
func (m MultiNotifier) BookingStatusChanged(ctx context.Context, orgID string, b *models.Booking, from Status) error {
	var errs []error
	for _, n := range m {
		if err := n.BookingStatusChanged(ctx, orgID, b, from); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
