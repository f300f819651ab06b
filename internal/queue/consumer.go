package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Logger is the subset of echo's logger the consumer writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Consumer listens on every booking queue and appends one line per event
// to a log file.
type Consumer struct {
	URL     string
	LogPath string // defaults to logs/booking.log
	Log     Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial and
// channel failures are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warnf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warnf("booking-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warnf("booking-consumer: set QoS failed: %v", err)
	}

	deliveries := make(chan amqp.Delivery)
	for _, name := range Queues {
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
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	c.Log.Infof("booking-consumer: listening on %v", Queues)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-deliveries:
			if err := c.handle(d.Body); err != nil {
				c.Log.Warnf("booking-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // do not requeue, avoids a poison loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	path := c.LogPath
	if path == "" {
		path = filepath.Join("logs", "booking.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return WriteLine(f, ev)
}

// WriteLine writes ev as a single human-readable log line.
func WriteLine(w io.Writer, ev BookingEvent) error {
	_, err := fmt.Fprintf(w, "[%s] %s | booking_id=%d | user_id=%d | accommodation_id=%d | accommodation=%q | start=%s | days=%d | rooms=%d | status=%s | actor_id=%d\n",
		ev.OccurredAt, ev.Type, ev.BookingID, ev.UserID, ev.AccommodationID, ev.AccommodationName,
		ev.StartDate, ev.Days, ev.Rooms, ev.Status, ev.ActorID)
	if err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
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
