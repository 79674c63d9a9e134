package presence

import (
	"sync"
)

// Session 一个已认证的活跃连接
// 一个用户可以同时持有多个会话（多设备、多标签页）
type Session interface {
	ID() string
	UserID() int64
	Send(event string, payload any)
	Close()
}

// Manager 管理本节点的全部会话
type Manager struct {
	sessions     map[string]Session
	userSessions map[int64]map[string]Session // userID -> sessionID -> Session
	rooms        map[int64]map[string]Session // conversationID -> sessionID -> Session
	sessionRooms map[string]map[int64]bool    // sessionID -> conversationID
	mu           sync.RWMutex
}

// NewManager 创建会话管理器
func NewManager() *Manager {
	return &Manager{
		sessions:     make(map[string]Session),
		userSessions: make(map[int64]map[string]Session),
		rooms:        make(map[int64]map[string]Session),
		sessionRooms: make(map[string]map[int64]bool),
	}
}

// Add 注册会话，返回该用户注册后的会话数
func (m *Manager) Add(s Session) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID()] = s

	if _, ok := m.userSessions[s.UserID()]; !ok {
		m.userSessions[s.UserID()] = make(map[string]Session)
	}
	m.userSessions[s.UserID()][s.ID()] = s

	return len(m.userSessions[s.UserID()])
}

// Remove 注销会话并退出其全部房间，返回该用户剩余的会话数
func (m *Manager) Remove(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return 0
	}

	delete(m.sessions, sessionID)

	for conversationID := range m.sessionRooms[sessionID] {
		if room, ok := m.rooms[conversationID]; ok {
			delete(room, sessionID)
			if len(room) == 0 {
				delete(m.rooms, conversationID)
			}
		}
	}
	delete(m.sessionRooms, sessionID)

	remaining := 0
	if userSessions, ok := m.userSessions[s.UserID()]; ok {
		delete(userSessions, sessionID)
		remaining = len(userSessions)
		if remaining == 0 {
			delete(m.userSessions, s.UserID())
		}
	}

	return remaining
}

// Get 获取会话
func (m *Manager) Get(sessionID string) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// GetByUserID 获取某用户的全部会话
func (m *Manager) GetByUserID(userID int64) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userSessions, ok := m.userSessions[userID]
	if !ok {
		return nil
	}

	sessions := make([]Session, 0, len(userSessions))
	for _, s := range userSessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// JoinRoom 会话加入房间
func (m *Manager) JoinRoom(sessionID string, conversationID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}

	if _, ok := m.rooms[conversationID]; !ok {
		m.rooms[conversationID] = make(map[string]Session)
	}
	m.rooms[conversationID][sessionID] = s

	if _, ok := m.sessionRooms[sessionID]; !ok {
		m.sessionRooms[sessionID] = make(map[int64]bool)
	}
	m.sessionRooms[sessionID][conversationID] = true

	return true
}

// LeaveRoom 会话退出房间
func (m *Manager) LeaveRoom(sessionID string, conversationID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[conversationID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
	if rooms, ok := m.sessionRooms[sessionID]; ok {
		delete(rooms, conversationID)
		if len(rooms) == 0 {
			delete(m.sessionRooms, sessionID)
		}
	}
}

// GetRoom 获取房间内的全部会话
func (m *Manager) GetRoom(conversationID int64) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[conversationID]
	if !ok {
		return nil
	}

	sessions := make([]Session, 0, len(room))
	for _, s := range room {
		sessions = append(sessions, s)
	}
	return sessions
}

// All 获取全部会话
func (m *Manager) All() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count 当前会话总数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// UserCount 当前在线用户数
func (m *Manager) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userSessions)
}
