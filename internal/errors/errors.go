package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码、HTTP 状态码和用户可见的错误消息
type AppError struct {
	Code    int    // 错误码
	Status  int    // HTTP 状态码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code, status int, message string) *AppError {
	return &AppError{
		Code:    code,
		Status:  status,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Status:  e.Status,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnexpected
}

// GetStatus 获取 HTTP 状态码
func GetStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred."
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeTokenInvalid = 10003
	CodeTokenExpired = 10004

	// 用户相关 11000-11999
	CodeUserNotFound     = 11001
	CodeInvalidParams    = 11002
	CodeLanguageNotFound = 11003

	// 会话权限相关 13000-13099
	CodeNotParticipant = 13001
	CodeNotAdmin       = 13002
	CodeNotOwner       = 13003
	CodeNotFriends     = 13004
	CodeNotGroup       = 13005

	// 会话校验相关 13100-13199
	CodeInvalidGroupData      = 13101
	CodeInvalidMessageData    = 13102
	CodeDuplicateParticipants = 13103
	CodeSelfConversation      = 13104

	// 资源不存在 13200-13299
	CodeConversationNotFound = 13201
	CodeMessageNotFound      = 13202

	// 系统错误 50000-50999
	CodeUnexpected    = 50001
	CodeDBError       = 50002
	CodeTooManyReqest = 50003
)

// ============== 预定义错误 ==============

// 会话权限相关
var (
	ErrNotParticipant = NewError(CodeNotParticipant, http.StatusForbidden, "User is not a participant in this conversation.")
	ErrNotAdmin       = NewError(CodeNotAdmin, http.StatusForbidden, "User is not an admin of this group.")
	ErrNotOwner       = NewError(CodeNotOwner, http.StatusForbidden, "Only the owner of this group may do that.")
	ErrNotFriends     = NewError(CodeNotFriends, http.StatusForbidden, "Users are not friends.")
	ErrNotGroup       = NewError(CodeNotGroup, http.StatusBadRequest, "Chat is not a group chat.")
)

// 会话校验相关
var (
	ErrInvalidGroupData      = NewError(CodeInvalidGroupData, http.StatusBadRequest, "The provided group data is invalid.")
	ErrInvalidMessageData    = NewError(CodeInvalidMessageData, http.StatusBadRequest, "The provided message data is invalid.")
	ErrDuplicateParticipants = NewError(CodeDuplicateParticipants, http.StatusBadRequest, "The participant list contains duplicates.")
	ErrSelfConversation      = NewError(CodeSelfConversation, http.StatusBadRequest, "Users cannot message themselves.")
)

// 资源不存在
var (
	ErrConversationNotFound = NewError(CodeConversationNotFound, http.StatusNotFound, "No chat was found.")
	ErrMessageNotFound      = NewError(CodeMessageNotFound, http.StatusNotFound, "The message was not found.")
	ErrUserNotFound         = NewError(CodeUserNotFound, http.StatusNotFound, "No user was found.")
	ErrLanguageNotFound     = NewError(CodeLanguageNotFound, http.StatusNotFound, "No language was found.")
)

// 认证相关
var (
	ErrTokenInvalid = NewError(CodeTokenInvalid, http.StatusUnauthorized, "The token is invalid.")
	ErrTokenExpired = NewError(CodeTokenExpired, http.StatusUnauthorized, "The token has expired.")
)

// 系统相关
var (
	ErrUnexpected     = NewError(CodeUnexpected, http.StatusInternalServerError, "An unexpected error occurred.")
	ErrInvalidParams  = NewError(CodeInvalidParams, http.StatusBadRequest, "The provided parameters are invalid.")
	ErrDBError        = NewError(CodeDBError, http.StatusInternalServerError, "A database error occurred.")
	ErrTooManyRequest = NewError(CodeTooManyReqest, http.StatusTooManyRequests, "You have made too many requests.")
)
