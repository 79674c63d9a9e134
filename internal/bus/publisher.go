package bus

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Envelope 推送事件信封
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EventPublisher 推送事件发布器
type EventPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(nc *nats.Conn) *EventPublisher {
	return &EventPublisher{
		nc:     nc,
		logger: slog.Default(),
	}
}

// PushToUser 发布用户推送事件
func (p *EventPublisher) PushToUser(userID int64, event string, payload any) {
	p.publish(BuildUserSubject(userID), event, payload)
}

// PushToRoom 发布房间推送事件
func (p *EventPublisher) PushToRoom(conversationID int64, event string, payload any) {
	p.publish(BuildRoomSubject(conversationID), event, payload)
}

// Broadcast 发布全体广播事件
func (p *EventPublisher) Broadcast(event string, payload any) {
	p.publish(SubjectBroadcast, event, payload)
}

// publish 序列化并发布；发布失败只记录日志，投递是尽力而为
func (p *EventPublisher) publish(subject, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal push payload", "subject", subject, "event", event, "error", err)
		return
	}

	envelope, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		p.logger.Error("Failed to marshal push envelope", "subject", subject, "event", event, "error", err)
		return
	}

	if err := p.nc.Publish(subject, envelope); err != nil {
		p.logger.Error("Failed to publish push event", "subject", subject, "event", event, "error", err)
		return
	}

	p.logger.Debug("Published push event", "subject", subject, "event", event)
}
