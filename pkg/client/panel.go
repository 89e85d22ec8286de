package client

import (
	"context"
	"sync"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/notifications"
)

// DefaultPollInterval matches how often the web client refreshes its panel.
const DefaultPollInterval = 30 * time.Second

// NotificationPanel keeps the user's notification feed. Responding to an
// item removes it locally before the request is sent; a failed request
// does not restore it. The next Refresh reconciles with the server.
type NotificationPanel struct {
	client *Client

	mu      sync.Mutex
	feed    notifications.Feed
	lastErr error

	// OnChange, when set, is called with a copy of the feed after every change.
	OnChange func(notifications.Feed)

	pollMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotificationPanel(c *Client) *NotificationPanel {
	return &NotificationPanel{client: c, feed: notifications.Aggregate(nil, nil, nil)}
}

// Feed returns a copy of the current feed.
func (p *NotificationPanel) Feed() notifications.Feed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyFeed(p.feed)
}

// LastError returns the error of the latest refresh, if any.
func (p *NotificationPanel) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func copyFeed(f notifications.Feed) notifications.Feed {
	return notifications.Aggregate(f.Requests, f.Reschedules, f.Cancellations)
}

func (p *NotificationPanel) changed() {
	if p.OnChange == nil {
		return
	}
	p.OnChange(p.Feed())
}

// Refresh replaces the local feed with the server's.
func (p *NotificationPanel) Refresh(ctx context.Context) error {
	feed, err := p.client.Notifications(ctx)
	p.mu.Lock()
	p.lastErr = err
	if err == nil {
		p.feed = copyFeed(feed)
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.changed()
	return nil
}

func (p *NotificationPanel) remove(kind notifications.Kind, id uint) {
	p.mu.Lock()
	removed := p.feed.Remove(kind, id)
	p.mu.Unlock()
	if removed {
		p.changed()
	}
}

// Accept accepts a booking request.
func (p *NotificationPanel) Accept(ctx context.Context, bookingID uint) error {
	p.remove(notifications.KindRequest, bookingID)
	_, err := p.client.RespondToRequest(ctx, bookingID, lifecycle.ActionAccept, "")
	return err
}

// Decline declines a booking request.
func (p *NotificationPanel) Decline(ctx context.Context, bookingID uint, message string) error {
	p.remove(notifications.KindRequest, bookingID)
	_, err := p.client.RespondToRequest(ctx, bookingID, lifecycle.ActionDecline, message)
	return err
}

func (p *NotificationPanel) respondToReschedule(ctx context.Context, requestID uint, approve bool) error {
	p.mu.Lock()
	var bookingID uint
	for _, r := range p.feed.Reschedules {
		if r.ID == requestID {
			bookingID = r.BookingID
			break
		}
	}
	p.mu.Unlock()
	if bookingID == 0 {
		return apperror.NotFound("reschedule request")
	}

	p.remove(notifications.KindReschedule, requestID)
	_, err := p.client.RespondToReschedule(ctx, bookingID, requestID, approve)
	return err
}

// Approve approves a reschedule request in the feed.
func (p *NotificationPanel) Approve(ctx context.Context, requestID uint) error {
	return p.respondToReschedule(ctx, requestID, true)
}

// Reject rejects a reschedule request in the feed.
func (p *NotificationPanel) Reject(ctx context.Context, requestID uint) error {
	return p.respondToReschedule(ctx, requestID, false)
}

// Acknowledge dismisses a cancellation notice.
func (p *NotificationPanel) Acknowledge(ctx context.Context, noticeID uint) error {
	p.remove(notifications.KindCancellation, noticeID)
	return p.client.AcknowledgeCancellation(ctx, noticeID)
}

// StartPolling refreshes immediately and then every interval until Stop is
// called or ctx is done. Calling it while polling restarts the loop.
func (p *NotificationPanel) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.pollMu.Lock()
	p.cancel, p.done = cancel, done
	p.pollMu.Unlock()

	go func() {
		defer close(done)
		_ = p.Refresh(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = p.Refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends polling and waits for the loop to exit.
func (p *NotificationPanel) Stop() {
	p.pollMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.pollMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
