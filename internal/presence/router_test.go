package presence

import (
	"context"
	"sync"
	"testing"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
)

type memoryRegistry struct {
	mu       sync.Mutex
	sessions map[int64]int64
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{sessions: make(map[int64]int64)}
}

func (r *memoryRegistry) AddSession(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID]++
	return r.sessions[userID], nil
}

func (r *memoryRegistry) RemoveSession(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID]--
	if r.sessions[userID] <= 0 {
		delete(r.sessions, userID)
		return 0, nil
	}
	return r.sessions[userID], nil
}

func (r *memoryRegistry) OnlineCount(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sessions)), nil
}

type capturedEvent struct {
	subject string
	id      int64
	event   string
	payload any
}

type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturePublisher) PushToUser(userID int64, event string, payload any) {
	p.record(capturedEvent{subject: "user", id: userID, event: event, payload: payload})
}

func (p *capturePublisher) PushToRoom(conversationID int64, event string, payload any) {
	p.record(capturedEvent{subject: "room", id: conversationID, event: event, payload: payload})
}

func (p *capturePublisher) Broadcast(event string, payload any) {
	p.record(capturedEvent{subject: "broadcast", event: event, payload: payload})
}

func (p *capturePublisher) record(e capturedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) byEvent(event string) []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []capturedEvent
	for _, e := range p.events {
		if e.event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

type staticChecker struct {
	members map[int64]map[int64]bool // conversationID -> userID
}

func (c *staticChecker) IsParticipant(_ context.Context, userID, conversationID int64) (bool, error) {
	return c.members[conversationID][userID], nil
}

func newTestRouter(checker ParticipantChecker) (*Router, *Manager, *capturePublisher) {
	manager := NewManager()
	publisher := &capturePublisher{}
	router := NewRouter(manager, newMemoryRegistry(), publisher, checker)
	return router, manager, publisher
}

func TestRouter_OnlineCountBroadcasts(t *testing.T) {
	router, _, publisher := newTestRouter(&staticChecker{})
	ctx := context.Background()

	s1 := &fakeSession{id: "s1", userID: 1}
	s2 := &fakeSession{id: "s2", userID: 1}

	// 首个会话上线广播一次
	router.OnConnect(ctx, s1)
	if got := len(publisher.byEvent(bus.EventOnlineCount)); got != 1 {
		t.Fatalf("Expected 1 online-count broadcast, got %d", got)
	}

	// 同一用户的第二个会话不再广播
	router.OnConnect(ctx, s2)
	if got := len(publisher.byEvent(bus.EventOnlineCount)); got != 1 {
		t.Errorf("Expected no broadcast for second session, got %d", got)
	}

	// 非最后一个会话下线不广播
	router.OnDisconnect(ctx, "s1")
	if got := len(publisher.byEvent(bus.EventOnlineCount)); got != 1 {
		t.Errorf("Expected no broadcast before last session leaves, got %d", got)
	}

	// 最后一个会话下线再广播一次
	router.OnDisconnect(ctx, "s2")
	if got := len(publisher.byEvent(bus.EventOnlineCount)); got != 2 {
		t.Errorf("Expected broadcast after last session left, got %d", got)
	}
}

func TestRouter_JoinRoomChecksParticipancy(t *testing.T) {
	checker := &staticChecker{members: map[int64]map[int64]bool{
		500: {1: true},
	}}
	router, manager, _ := newTestRouter(checker)
	ctx := context.Background()

	member := &fakeSession{id: "s1", userID: 1}
	outsider := &fakeSession{id: "s2", userID: 2}
	router.OnConnect(ctx, member)
	router.OnConnect(ctx, outsider)

	if err := router.JoinRoom(ctx, "s1", 500); err != nil {
		t.Fatalf("Expected participant to join room: %v", err)
	}
	if err := router.JoinRoom(ctx, "s2", 500); !apperrors.Is(err, apperrors.ErrNotParticipant) {
		t.Errorf("Expected NotParticipant for outsider, got %v", err)
	}

	if got := len(manager.GetRoom(500)); got != 1 {
		t.Errorf("Expected exactly 1 session in room, got %d", got)
	}
}

func TestRouter_PushGoesThroughPublisher(t *testing.T) {
	router, _, publisher := newTestRouter(&staticChecker{})

	router.PushToUser(7, bus.EventMessageNew, "payload")
	router.PushToRoom(500, bus.EventConversationUpdated, "payload")

	userEvents := publisher.byEvent(bus.EventMessageNew)
	if len(userEvents) != 1 || userEvents[0].subject != "user" || userEvents[0].id != 7 {
		t.Errorf("Unexpected user push: %+v", userEvents)
	}
	roomEvents := publisher.byEvent(bus.EventConversationUpdated)
	if len(roomEvents) != 1 || roomEvents[0].subject != "room" || roomEvents[0].id != 500 {
		t.Errorf("Unexpected room push: %+v", roomEvents)
	}
}

func TestRouter_LocalDelivery(t *testing.T) {
	router, _, _ := newTestRouter(&staticChecker{members: map[int64]map[int64]bool{
		500: {1: true, 2: true},
	}})
	ctx := context.Background()

	s1 := &fakeSession{id: "s1", userID: 1}
	s2 := &fakeSession{id: "s2", userID: 1}
	s3 := &fakeSession{id: "s3", userID: 2}
	router.OnConnect(ctx, s1)
	router.OnConnect(ctx, s2)
	router.OnConnect(ctx, s3)

	// 用户投递到达该用户的每个会话
	router.DeliverToUser(1, bus.EventMessageNew, nil)
	if len(s1.sentEvents()) != 1 || len(s2.sentEvents()) != 1 {
		t.Error("Expected delivery to every session of user 1")
	}
	if len(s3.sentEvents()) != 0 {
		t.Error("Expected no delivery to other users")
	}

	// 无活跃会话时静默丢弃
	router.DeliverToUser(99, bus.EventMessageNew, nil)

	// 房间投递只到达已订阅的会话
	router.JoinRoom(ctx, "s1", 500)
	router.JoinRoom(ctx, "s3", 500)
	router.DeliverToRoom(500, bus.EventMessageDeleted, nil)

	if got := s1.sentEvents(); got[len(got)-1] != bus.EventMessageDeleted {
		t.Error("Expected room delivery to subscribed session s1")
	}
	if got := len(s2.sentEvents()); got != 1 {
		t.Errorf("Expected no room delivery to unsubscribed session s2, got %d events", got)
	}
}
