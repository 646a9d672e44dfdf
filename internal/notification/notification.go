package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KindWithdrawalCode delivers a one-time withdrawal code to the account holder.
	KindWithdrawalCode = "withdrawal_code"
	// KindWithdrawal confirms dispensed cash.
	KindWithdrawal = "withdrawal"
	// KindDeposit confirms a deposit.
	KindDeposit = "deposit"
	// KindTransfer tells the receiving account about incoming funds.
	KindTransfer = "transfer"
)

// ChannelPrefix prefixes the Redis channel a message is published on; the
// kind completes the name, e.g. "notifications:withdrawal_code".
const ChannelPrefix = "notifications:"

// Message describes a notification payload.
type Message struct {
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sent_at"`
}

// Notifier delivers notifications to account holders (SMS, push, ...).
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}

// RedisNotifier publishes messages as JSON on Redis channels for delivery
// workers to pick up.
type RedisNotifier struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisNotifier constructs a publisher over client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client, now: time.Now}
}

// Send publishes message on ChannelPrefix+message.Kind.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	if message.SentAt.IsZero() {
		message.SentAt = n.now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelPrefix+message.Kind, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Fanout sends every message to each notifier in turn and joins the errors.
type Fanout []Notifier

// Send delivers message to all notifiers, even after a failure.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
