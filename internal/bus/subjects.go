package bus

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// SubjectUserPrefix 用户推送主题前缀
	SubjectUserPrefix = "chat.push.user."

	// SubjectRoomPrefix 会话房间推送主题前缀
	SubjectRoomPrefix = "chat.push.room."

	// SubjectBroadcast 全体广播主题
	SubjectBroadcast = "chat.push.broadcast"

	// SubjectUserWildcard 用户推送订阅通配
	SubjectUserWildcard = SubjectUserPrefix + "*"

	// SubjectRoomWildcard 房间推送订阅通配
	SubjectRoomWildcard = SubjectRoomPrefix + "*"
)

// BuildUserSubject 构建用户推送主题
func BuildUserSubject(userID int64) string {
	return fmt.Sprintf("%s%d", SubjectUserPrefix, userID)
}

// BuildRoomSubject 构建房间推送主题
func BuildRoomSubject(conversationID int64) string {
	return fmt.Sprintf("%s%d", SubjectRoomPrefix, conversationID)
}

// ParseSubjectID 从主题中解析末尾的数字 ID
func ParseSubjectID(subject, prefix string) (int64, bool) {
	tail, ok := strings.CutPrefix(subject, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
