package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ViksyAsenov/poly-talk/internal/model"
	"github.com/ViksyAsenov/poly-talk/internal/translate"
	"github.com/ViksyAsenov/poly-talk/pkg/snowflake"
)

// 内存版存储，测试用

type fakeConversationStore struct {
	conversations map[int64]*model.Conversation
	participants  []*model.Participant
	deleted       []int64
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{conversations: make(map[int64]*model.Conversation)}
}

func (f *fakeConversationStore) Create(_ context.Context, conv *model.Conversation) error {
	c := *conv
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.conversations[c.ID] = &c
	conv.CreatedAt = c.CreatedAt
	conv.UpdatedAt = c.UpdatedAt
	return nil
}

func (f *fakeConversationStore) GetByID(_ context.Context, id int64) (*model.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	c := *conv
	return &c, nil
}

func (f *fakeConversationStore) Rename(_ context.Context, id int64, name string) error {
	if conv, ok := f.conversations[id]; ok {
		conv.Name = &name
		conv.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeConversationStore) GetParticipants(_ context.Context, conversationID int64) ([]model.Participant, error) {
	var out []model.Participant
	for _, p := range f.participants {
		if p.ConversationID == conversationID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeConversationStore) GetParticipant(_ context.Context, userID, conversationID int64) (*model.Participant, error) {
	for _, p := range f.participants {
		if p.UserID == userID && p.ConversationID == conversationID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConversationStore) AddParticipant(_ context.Context, p *model.Participant) error {
	for _, existing := range f.participants {
		if existing.UserID == p.UserID && existing.ConversationID == p.ConversationID {
			return nil
		}
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.participants = append(f.participants, &cp)
	return nil
}

func (f *fakeConversationStore) RemoveParticipant(_ context.Context, userID, conversationID int64) error {
	for i, p := range f.participants {
		if p.UserID == userID && p.ConversationID == conversationID {
			f.participants = append(f.participants[:i], f.participants[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeConversationStore) SetParticipantAdmin(_ context.Context, userID, conversationID int64, isAdmin bool) error {
	for _, p := range f.participants {
		if p.UserID == userID && p.ConversationID == conversationID {
			p.IsAdmin = isAdmin
			p.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (f *fakeConversationStore) ListIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for _, p := range f.participants {
		if p.UserID == userID {
			ids = append(ids, p.ConversationID)
		}
	}
	return ids, nil
}

func (f *fakeConversationStore) Delete(_ context.Context, conversationID int64) error {
	delete(f.conversations, conversationID)
	kept := f.participants[:0]
	for _, p := range f.participants {
		if p.ConversationID != conversationID {
			kept = append(kept, p)
		}
	}
	f.participants = kept
	f.deleted = append(f.deleted, conversationID)
	return nil
}

type fakeMessageStore struct {
	messages []*model.Message
	deleted  []int64
}

func (f *fakeMessageStore) Create(_ context.Context, msg *model.Message) error {
	m := *msg
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	f.messages = append(f.messages, &m)
	msg.CreatedAt = m.CreatedAt
	return nil
}

func (f *fakeMessageStore) GetByID(_ context.Context, id int64) (*model.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageStore) ListByConversation(_ context.Context, conversationID int64, before time.Time, limit int) ([]model.Message, error) {
	var page []model.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID && !m.CreatedAt.After(before) {
			page = append(page, *m)
		}
	}
	sort.Slice(page, func(i, j int) bool {
		if !page[i].CreatedAt.Equal(page[j].CreatedAt) {
			return page[i].CreatedAt.After(page[j].CreatedAt)
		}
		return page[i].ID > page[j].ID
	})
	if len(page) > limit {
		page = page[:limit]
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (f *fakeMessageStore) LatestInConversation(_ context.Context, conversationID int64) (*model.Message, error) {
	var latest *model.Message
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeMessageStore) Delete(_ context.Context, id int64) error {
	for i, m := range f.messages {
		if m.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			break
		}
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeUserDirectory struct {
	users   map[int64]*model.MinimalUser
	friends map[string]bool
}

func newFakeUserDirectory() *fakeUserDirectory {
	return &fakeUserDirectory{
		users:   make(map[int64]*model.MinimalUser),
		friends: make(map[string]bool),
	}
}

func (f *fakeUserDirectory) addUser(id int64, languageID *int64) {
	f.users[id] = &model.MinimalUser{
		ID:          id,
		DisplayName: fmt.Sprintf("user-%d", id),
		Tag:         fmt.Sprintf("user%d", id),
		LanguageID:  languageID,
	}
}

func (f *fakeUserDirectory) befriend(a, b int64) {
	f.friends[friendKey(a, b)] = true
}

func (f *fakeUserDirectory) unfriend(a, b int64) {
	delete(f.friends, friendKey(a, b))
}

func friendKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (f *fakeUserDirectory) GetMinimalProfile(_ context.Context, userID int64) (*model.MinimalUser, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, errUserNotFoundForTest
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserDirectory) AreFriends(_ context.Context, userID, otherID int64) (bool, error) {
	return f.friends[friendKey(userID, otherID)], nil
}

// fakeGateway 只认预置的缓存和可翻译项
type fakeGateway struct {
	cache        map[string]*model.Translation
	translations map[string]string
	resolveCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		cache:        make(map[string]*model.Translation),
		translations: make(map[string]string),
	}
}

func translationKey(messageID, targetLanguageID int64) string {
	return fmt.Sprintf("%d:%d", messageID, targetLanguageID)
}

func (f *fakeGateway) Resolve(_ context.Context, msg *model.Message, targetLanguageID int64) translate.Result {
	f.resolveCalls++
	if t, ok := f.cache[translationKey(msg.ID, targetLanguageID)]; ok {
		return translate.Result{Content: t.TranslatedContent, Translated: true}
	}
	if translated, ok := f.translations[translationKey(msg.ID, targetLanguageID)]; ok {
		return translate.Result{Content: translated, Translated: true}
	}
	return translate.Result{Content: msg.Content, Translated: false}
}

func (f *fakeGateway) Cached(_ context.Context, messageID, targetLanguageID int64) (*model.Translation, error) {
	return f.cache[translationKey(messageID, targetLanguageID)], nil
}

type push struct {
	UserID         int64
	ConversationID int64
	Event          string
	Payload        any
}

type fakeRouter struct {
	userPushes []push
	roomPushes []push
}

func (f *fakeRouter) PushToUser(userID int64, event string, payload any) {
	f.userPushes = append(f.userPushes, push{UserID: userID, Event: event, Payload: payload})
}

func (f *fakeRouter) PushToRoom(conversationID int64, event string, payload any) {
	f.roomPushes = append(f.roomPushes, push{ConversationID: conversationID, Event: event, Payload: payload})
}

func (f *fakeRouter) userEvents(userID int64) []string {
	var events []string
	for _, p := range f.userPushes {
		if p.UserID == userID {
			events = append(events, p.Event)
		}
	}
	return events
}

var errUserNotFoundForTest = fmt.Errorf("user not found")

type fixture struct {
	conversations *fakeConversationStore
	messages      *fakeMessageStore
	users         *fakeUserDirectory
	gateway       *fakeGateway
	router        *fakeRouter
	convService   *ConversationService
	msgService    *MessageService
}

func newFixture() *fixture {
	node, _ := snowflake.NewNode(1)
	f := &fixture{
		conversations: newFakeConversationStore(),
		messages:      &fakeMessageStore{},
		users:         newFakeUserDirectory(),
		gateway:       newFakeGateway(),
		router:        &fakeRouter{},
	}
	logger := slog.Default()
	f.convService = NewConversationService(f.conversations, f.messages, f.users, f.gateway, f.router, node, logger)
	f.msgService = NewMessageService(f.conversations, f.messages, f.users, f.gateway, f.router, node, 25, logger)
	return f
}
