// Package rabbitmq delivers client activity events to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"chat-client/internal/models"
)

const (
	ModeAMQP = "amqp"
	ModeNoop = "noop"
)

// Publisher delivers activity envelopes to a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher connects to the broker and declares the topic exchange. Any
// failure, or an empty url, yields a publisher that only logs.
func NewPublisher(amqpURL, exchange string, log logrus.FieldLogger) Publisher {
	if amqpURL == "" {
		log.Debug("activity events disabled: empty amqp url")
		return &logPublisher{reason: "empty amqp url", log: log}
	}

	conn, ch, err := dial(amqpURL, exchange)
	if err != nil {
		log.WithError(err).Warn("activity events disabled: broker unavailable")
		return &logPublisher{reason: err.Error(), log: log}
	}

	log.WithField("exchange", exchange).Info("activity events go to rabbitmq")
	return &brokerPublisher{conn: conn, ch: ch, exchange: exchange, log: log}
}

func dial(amqpURL, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	// durable, not auto-deleted, not internal, wait for the broker
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

type brokerPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      logrus.FieldLogger
}

func (p *brokerPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      headers(ctx, event),
		Body:         body,
	}
	if envelope, ok := asEnvelope(event); ok {
		msg.MessageId = envelope.EventID
		msg.Type = envelope.EventName
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		p.log.WithFields(logrus.Fields{"routing_key": routingKey, "error": err}).Warn("activity publish to rabbitmq failed")
		return err
	}
	return nil
}

func (p *brokerPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// headers correlates a message with the request and trace that caused it.
func headers(ctx context.Context, event any) amqp.Table {
	table := amqp.Table{}
	if envelope, ok := asEnvelope(event); ok && envelope.RequestID != "" {
		table["x-request-id"] = envelope.RequestID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		table["trace_id"] = sc.TraceID().String()
	}
	return table
}

func asEnvelope(event any) (models.ActivityEnvelope, bool) {
	switch e := event.(type) {
	case models.ActivityEnvelope:
		return e, true
	case *models.ActivityEnvelope:
		if e != nil {
			return *e, true
		}
	}
	return models.ActivityEnvelope{}, false
}

// logPublisher writes events to the log instead of a broker.
type logPublisher struct {
	reason string
	log    logrus.FieldLogger
}

func (p *logPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	entry := p.log.WithField("routing_key", routingKey)
	if envelope, ok := asEnvelope(event); ok {
		entry = entry.WithFields(logrus.Fields{"event_name": envelope.EventName, "request_id": envelope.RequestID})
	}
	entry.Debug("activity event not published")
	return nil
}

func (p *logPublisher) Close() error {
	return nil
}

// Mode names the publisher kind for startup logging, with the reason events
// are only logged when that is the case.
func Mode(p Publisher) (mode, reason string) {
	switch pub := p.(type) {
	case *brokerPublisher:
		return ModeAMQP, ""
	case *logPublisher:
		return ModeNoop, pub.reason
	default:
		return "unknown", ""
	}
}
