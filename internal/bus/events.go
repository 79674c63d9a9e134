package bus

// 推送事件名，客户端按事件名分发
const (
	EventMessageNew          = "message:new"
	EventMessageDeleted      = "message:deleted"
	EventConversationUpdated = "conversation:updated"
	EventConversationDeleted = "conversation:deleted"
	EventOnlineCount         = "chat:onlineCount"
)
