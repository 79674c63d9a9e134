package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// DeliveryHandler 本地投递处理器
// 订阅器把收到的推送事件交给本节点的投递路由
type DeliveryHandler interface {
	DeliverToUser(userID int64, event string, data json.RawMessage)
	DeliverToRoom(conversationID int64, event string, data json.RawMessage)
	DeliverBroadcast(event string, data json.RawMessage)
}

// SubscriberConfig Worker 配置
type SubscriberConfig struct {
	WorkerCount int // Worker 数量
	BufferSize  int // 消息缓冲区大小
}

// EventSubscriber 推送事件订阅器
type EventSubscriber struct {
	nc            *nats.Conn
	handler       DeliveryHandler
	logger        *slog.Logger
	subscriptions []*nats.Subscription
	config        SubscriberConfig
	msgChan       chan *nats.Msg
	wg            sync.WaitGroup
	cancelFunc    context.CancelFunc
}

// NewEventSubscriber 创建事件订阅器
func NewEventSubscriber(nc *nats.Conn, handler DeliveryHandler, config SubscriberConfig) *EventSubscriber {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 16
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}

	return &EventSubscriber{
		nc:      nc,
		handler: handler,
		logger:  slog.Default(),
		config:  config,
	}
}

// Start 启动订阅
func (s *EventSubscriber) Start(ctx context.Context) error {
	s.msgChan = make(chan *nats.Msg, s.config.BufferSize)

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(workerCtx)
	}

	for _, subject := range []string{SubjectUserWildcard, SubjectRoomWildcard, SubjectBroadcast} {
		sub, err := s.nc.Subscribe(subject, s.enqueue)
		if err != nil {
			cancel()
			return err
		}
		s.subscriptions = append(s.subscriptions, sub)
	}

	s.logger.Info("Push event subscriber started",
		"workerCount", s.config.WorkerCount,
		"bufferSize", s.config.BufferSize)
	return nil
}

// enqueue 消息入队，缓冲区满时丢弃（投递是尽力而为）
func (s *EventSubscriber) enqueue(msg *nats.Msg) {
	select {
	case s.msgChan <- msg:
	default:
		s.logger.Warn("Push buffer full, dropping event", "subject", msg.Subject)
	}
}

// worker 工作协程
func (s *EventSubscriber) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.msgChan:
			if !ok {
				return
			}
			s.dispatch(msg)
		}
	}
}

// dispatch 按主题分发到本地投递处理器
func (s *EventSubscriber) dispatch(msg *nats.Msg) {
	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		s.logger.Error("Failed to unmarshal push envelope", "subject", msg.Subject, "error", err)
		return
	}

	if userID, ok := ParseSubjectID(msg.Subject, SubjectUserPrefix); ok {
		s.handler.DeliverToUser(userID, envelope.Event, envelope.Data)
		return
	}
	if conversationID, ok := ParseSubjectID(msg.Subject, SubjectRoomPrefix); ok {
		s.handler.DeliverToRoom(conversationID, envelope.Event, envelope.Data)
		return
	}
	if msg.Subject == SubjectBroadcast {
		s.handler.DeliverBroadcast(envelope.Event, envelope.Data)
		return
	}

	s.logger.Warn("Unknown push subject", "subject", msg.Subject)
}

// Stop 停止订阅
func (s *EventSubscriber) Stop() {
	for _, sub := range s.subscriptions {
		_ = sub.Unsubscribe()
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
	s.logger.Info("Push event subscriber stopped")
}
