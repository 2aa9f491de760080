package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the event queues and appends one line per event to
// <LogDir>/events.log.
type Consumer struct {
	url    string
	logDir string
	log    *slog.Logger
}

func NewConsumer(url, logDir string, log *slog.Logger) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{url: url, logDir: logDir, log: log.With("component", "consumer")}
}

// Run keeps a connection to the broker open until ctx is cancelled,
// reconnecting with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", "err", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set qos failed", "err", err)
	}

	merged := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, name := range []string{DecisionMadeQueue, VenueDeletedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- d:
				case <-done:
					return
				}
			}
			select {
			case merged <- amqp.Delivery{}:
			case <-done:
			}
		}(msgs)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-merged:
			if d.Acknowledger == nil {
				// zero delivery: one of the channels closed
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.RoutingKey, d.Body); err != nil {
				c.log.Error("handle message failed", "queue", d.RoutingKey, "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(queueName string, body []byte) error {
	line, err := FormatEvent(queueName, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders a message body from queueName as a single log line.
func FormatEvent(queueName string, body []byte) (string, error) {
	switch queueName {
	case DecisionMadeQueue:
		var ev DecisionMadeEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Decision made | %s=%d | status=%s | decided_by=%d | subject_id=%d | venue_id=%d | venue=%q\n",
			ev.DecidedAt, ev.EntityKind, ev.EntityID, ev.Status, ev.DecidedBy, ev.SubjectID, ev.VenueID, ev.VenueName), nil
	case VenueDeletedQueue:
		var ev VenueDeletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		ids := make([]string, len(ev.CancelledReservationIDs))
		for i, id := range ev.CancelledReservationIDs {
			ids[i] = fmt.Sprint(id)
		}
		return fmt.Sprintf("[%s] Venue deleted | venue_id=%d | venue=%q | deleted_by=%d | cancelled_reservations=[%s]\n",
			ev.DeletedAt, ev.VenueID, ev.VenueName, ev.DeletedBy, strings.Join(ids, ",")), nil
	}
	return "", fmt.Errorf("unknown queue %q", queueName)
}
