// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the request that produced the event.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/hotelhq/room-reservation/internal/queue"
)

// PublishReservationConfirmed publishes a ReservationConfirmedEvent to the
// reservation.confirmed queue.  Messages are persistent so they survive a
// broker restart.
func PublishReservationConfirmed(ctx context.Context, event q.ReservationConfirmedEvent) error {
	return publish(ctx, "reservation.confirmed", event)
}

// PublishPaymentRecorded publishes a PaymentRecordedEvent to the
// payment.recorded queue.
func PublishPaymentRecorded(ctx context.Context, event q.PaymentRecordedEvent) error {
	return publish(ctx, "payment.recorded", event)
}

func publish(ctx context.Context, queueName string, event interface{}) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
