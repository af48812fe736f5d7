// Package nats connects TravelTime to NATS: KeyValue buckets for storage,
// request/reply for the messaging surface and a JetStream stream for events.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/TravelTime/internal/logger"
	"github.com/Strob0t/TravelTime/internal/port/messaging"
)

const (
	streamName      = "TRAVELTIME"
	responderQueue  = "traveltime"
	headerRequestID = "X-Request-ID"
)

// Handler processes one event delivered by Subscribe.
type Handler func(ctx context.Context, subject string, data []byte) error

// Bus holds a NATS connection and its JetStream context.
type Bus struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the event stream exists.
func Connect(ctx context.Context, url string) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Name("traveltime"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{messaging.SubjectEvents + ".>"},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Bus{nc: nc, js: js}, nil
}

// KeyValue returns the bucket with the given name, creating it if needed.
// A zero ttl keeps values forever.
func (b *Bus) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := b.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Publish sends data to subject on the event stream. The request ID of ctx
// travels in a header.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// BroadcastEvent publishes payload as JSON on traveltime.events.<eventType>.
// Failures are logged; events are best effort.
func (b *Bus) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("nats event marshal failed", "event", eventType, "error", err)
		return
	}
	if err := b.Publish(ctx, EventSubject(eventType), data); err != nil {
		slog.Warn("nats event publish failed", "event", eventType, "error", err)
	}
}

// Subscribe delivers events published from now on whose subject matches
// subject. A handler error naks the message for redelivery.
func (b *Bus) Subscribe(ctx context.Context, subject string, handler Handler) (func(), error) {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		msgCtx := context.Background()
		if id := msg.Headers().Get(headerRequestID); id != "" {
			msgCtx = logger.WithRequestID(msgCtx, id)
		}
		if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
			slog.Error("event handler failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// Respond answers requests on subject with handler. Instances share a
// queue group so each request is answered once.
func (b *Bus) Respond(subject string, handler messaging.Handler) (func(), error) {
	sub, err := b.nc.QueueSubscribe(subject, responderQueue, func(msg *nats.Msg) {
		ctx := context.Background()
		if id := msg.Header.Get(headerRequestID); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}
		ctx, _ = logger.EnsureRequestID(ctx)
		if err := msg.Respond(handler(ctx, msg.Data)); err != nil {
			slog.Warn("nats respond failed", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	slog.Info("nats responder started", "subject", subject)

	return func() {
		if err := sub.Drain(); err != nil {
			slog.Warn("nats responder drain failed", "subject", subject, "error", err)
		}
	}, nil
}

// Request sends data to subject and waits for the reply.
func (b *Bus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	reply, err := b.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("nats request %s: %w", subject, err)
	}
	return reply.Data, nil
}

// IsConnected reports whether the underlying connection is up.
func (b *Bus) IsConnected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

// Close drains subscriptions and closes the connection.
func (b *Bus) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// EventSubject is the stream subject carrying events of eventType.
func EventSubject(eventType string) string {
	return messaging.SubjectEvents + "." + eventType
}

var _ messaging.Responder = (*Bus)(nil)
