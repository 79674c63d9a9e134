package model

import "time"

// MinimalUser 用户概要
// 由用户服务提供，消息引擎只消费这一子集
type MinimalUser struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Tag         string `json:"tag"`
	LanguageID  *int64 `json:"language_id"`
}

// Language 语言
type Language struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
