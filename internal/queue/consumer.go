package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event.  The consumer treats a handler
// error as non-fatal: the message is rejected without requeue so a bad
// payload cannot wedge the queue.
type Handler func(ev ReservationEvent) error

// StartConsumer connects to RabbitMQ, declares the reservation.events
// queue (durable), and starts consuming messages.  Every message is
// appended to logs/reservation.log in a single-line format and then
// passed to the handler (mail dispatch, wired in main).  The function
// runs a reconnect loop with backoff and keeps running across broker
// restarts; it never returns under normal operation.
func StartConsumer(handler Handler) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, handler); err != nil {
			log.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, handler Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("event-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(eventQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(eventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, handler); err != nil {
			log.Printf("event-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, handler Handler) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := appendEventLog(ev); err != nil {
		return err
	}
	if handler != nil {
		// The side channel is best-effort by contract: a failed mail send
		// is logged by the handler and must not trigger redelivery.
		if err := handler(ev); err != nil {
			log.Printf("event-consumer: handler for %s/%s: %v", ev.Kind, ev.ReservationID, err)
		}
	}
	return nil
}

func appendEventLog(ev ReservationEvent) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "reservation.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | reservation_id=%s | customer=%q | date=%s %s | amount=%d %s | ref=%s | reason=%q\n",
		ev.OccurredAt, ev.Kind, ev.ReservationID, ev.CustomerEmail, ev.Date, ev.Slot,
		ev.AmountCents, ev.Currency, ev.PaymentRef, ev.Reason)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
