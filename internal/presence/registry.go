package presence

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// onlineSessionsKey 在线会话数 Hash：userID -> 活跃会话数
	onlineSessionsKey = "chat:online:sessions"
)

// OnlineRegistry 跨节点在线用户注册表（基于 Redis）
// 本地 Manager 只知道本节点的会话，在线人数以注册表为准
type OnlineRegistry struct {
	redisClient *redis.Client
}

// NewOnlineRegistry 创建在线注册表
func NewOnlineRegistry(redisClient *redis.Client) *OnlineRegistry {
	return &OnlineRegistry{redisClient: redisClient}
}

// AddSession 记录用户新增一个会话，返回该用户当前的会话数
func (r *OnlineRegistry) AddSession(ctx context.Context, userID int64) (int64, error) {
	return r.redisClient.HIncrBy(ctx, onlineSessionsKey, formatUserID(userID), 1).Result()
}

// RemoveSession 记录用户减少一个会话，归零时移除该用户
func (r *OnlineRegistry) RemoveSession(ctx context.Context, userID int64) (int64, error) {
	field := formatUserID(userID)

	count, err := r.redisClient.HIncrBy(ctx, onlineSessionsKey, field, -1).Result()
	if err != nil {
		return 0, err
	}
	if count <= 0 {
		if err := r.redisClient.HDel(ctx, onlineSessionsKey, field).Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}

	return count, nil
}

// OnlineCount 当前在线用户数
func (r *OnlineRegistry) OnlineCount(ctx context.Context) (int64, error) {
	return r.redisClient.HLen(ctx, onlineSessionsKey).Result()
}

func formatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
