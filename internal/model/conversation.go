package model

import "time"

// Conversation 会话
// 单聊：正好两个参与者，无名称；群聊：有名称和群主
type Conversation struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant 会话参与者
type Participant struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ConversationID int64     `json:"conversation_id"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ParticipantData 参与者视图（附带用户概要）
type ParticipantData struct {
	ID             int64       `json:"id"`
	User           MinimalUser `json:"user"`
	ConversationID int64       `json:"conversation_id"`
	IsAdmin        bool        `json:"is_admin"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ConversationData 会话详情视图
// Preview 是最新一条消息按查看者语言缓存翻译后的内容
type ConversationData struct {
	Conversation
	Participants []ParticipantData `json:"participants"`
	Preview      *string           `json:"preview"`
	LastActivity time.Time         `json:"last_activity"`
}
