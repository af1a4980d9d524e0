// Package notify delivers operator alerts for scan events. Delivery is
// fire-and-forget: a slow or broken channel never blocks or fails a scan
// pass.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Event types reported by the engine and executor.
const (
	EventOpportunityFound   = "opportunity_found"
	EventOpportunitySkipped = "opportunity_skipped"
	EventNoOpportunity      = "no_opportunity"
	EventTradeSubmitted     = "trade_submitted"
	EventTradeConfirmed     = "trade_confirmed"
	EventTradeFailed        = "trade_failed"
	EventPassError          = "pass_error"
)

// Sender is one notification channel
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans events out to all senders asynchronously. Repeated
// opportunity alerts with the same fingerprint are suppressed for the
// cooldown window so a persistent spread does not flood the channel.
type Notifier struct {
	senders  []Sender
	logger   *zap.Logger
	timeout  time.Duration
	cooldown time.Duration

	mu   sync.Mutex
	seen map[uint64]time.Time
	wg   sync.WaitGroup
}

// NewNotifier creates a notifier delivering to the given senders
func NewNotifier(senders []Sender, cooldown time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		senders:  senders,
		logger:   logger,
		timeout:  10 * time.Second,
		cooldown: cooldown,
		seen:     make(map[uint64]time.Time),
	}
}

// Notify dispatches an event to all senders without blocking the caller
func (n *Notifier) Notify(event, title, message string) {
	if event == EventOpportunityFound && n.suppressed(title, message) {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		for _, s := range n.senders {
			if err := s.Send(ctx, title, message); err != nil {
				n.logger.Warn("notification delivery failed",
					zap.String("sender", s.Name()),
					zap.String("event", event),
					zap.Error(err))
			}
		}
	}()
}

// Close waits for in-flight deliveries to finish
func (n *Notifier) Close() {
	n.wg.Wait()
}

// suppressed reports whether an identical opportunity alert fired within the
// cooldown window, and records this one if not
func (n *Notifier) suppressed(title, message string) bool {
	if n.cooldown <= 0 {
		return false
	}

	h := xxhash.New()
	_, _ = h.WriteString(title)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(message)
	key := h.Sum64()

	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()

	if last, ok := n.seen[key]; ok && now.Sub(last) < n.cooldown {
		return true
	}
	n.seen[key] = now

	// Drop stale fingerprints so the map stays bounded.
	for k, t := range n.seen {
		if now.Sub(t) >= n.cooldown {
			delete(n.seen, k)
		}
	}
	return false
}
