package model

import "time"

// Message 消息
// 创建后不可修改，只能删除；随会话级联删除
type Message struct {
	ID                 int64     `json:"id"`
	ConversationID     int64     `json:"conversation_id"`
	SenderID           int64     `json:"sender_id"`
	Content            string    `json:"content"`
	OriginalLanguageID *int64    `json:"original_language_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// Translation 消息翻译缓存
// 以 (message_id, target_language_id) 为唯一键，懒加载、幂等 upsert
type Translation struct {
	MessageID         int64     `json:"message_id"`
	TargetLanguageID  int64     `json:"target_language_id"`
	TranslatedContent string    `json:"translated_content"`
	CreatedAt         time.Time `json:"created_at"`
}

// MessageData 按查看者生成的消息视图，不落库
type MessageData struct {
	ID             int64       `json:"id"`
	Sender         MinimalUser `json:"sender"`
	Content        string      `json:"content"`
	DisplayContent string      `json:"display_content"`
	IsTranslated   bool        `json:"is_translated"`
	ConversationID int64       `json:"conversation_id"`
	CreatedAt      time.Time   `json:"created_at"`
}
