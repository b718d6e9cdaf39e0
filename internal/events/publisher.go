package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
)

// Event types emitted for downstream consumers (notifications, analytics).
const (
	TypeMessageSent         = "message.sent"
	TypeConversationDeleted = "conversation.deleted"
)

type envelope struct {
	Type       string `json:"type"`
	OccurredAt string `json:"occurredAt"`
	Payload    any    `json:"payload"`
}

// Publisher writes integration events to Kafka. Publishing is strictly
// fire-and-forget: failures are logged and never surfaced to the send path.
type Publisher struct {
	writer *kafkago.Writer
	log    *zap.SugaredLogger
}

// NewPublisher returns nil when no brokers are configured; a nil Publisher is
// a valid no-op.
func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
	}
	return &Publisher{writer: w, log: log}
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, payload any) {
	if p == nil {
		return
	}
	b, err := json.Marshal(envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	})
	if err != nil {
		p.log.Warnw("event marshal", "type", eventType, "err", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: b}); err != nil {
		p.log.Warnw("event publish", "type", eventType, "err", err)
	}
}

func (p *Publisher) MessageSent(ctx context.Context, msg *models.Message) {
	p.publish(ctx, msg.ConversationID, TypeMessageSent, msg)
}

func (p *Publisher) ConversationDeleted(ctx context.Context, conversationID string) {
	p.publish(ctx, conversationID, TypeConversationDeleted, map[string]string{
		"conversationId": conversationID,
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
