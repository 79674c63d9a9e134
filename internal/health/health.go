package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = 2 * time.Second

// Status 各依赖的健康状态
type Status struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	NATS     string `json:"nats"`
}

// Checker 健康检查器
type Checker struct {
	db    *pgxpool.Pool
	redis *redis.Client
	nc    *nats.Conn
}

// NewChecker 创建健康检查器
func NewChecker(db *pgxpool.Pool, redisClient *redis.Client, nc *nats.Conn) *Checker {
	return &Checker{db: db, redis: redisClient, nc: nc}
}

// Check 探测全部依赖
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{Database: "disconnected", Redis: "disconnected", NATS: "disconnected"}

	dbCtx, dbCancel := context.WithTimeout(ctx, probeTimeout)
	defer dbCancel()
	if err := h.db.Ping(dbCtx); err == nil {
		status.Database = "connected"
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, probeTimeout)
	defer redisCancel()
	if err := h.redis.Ping(redisCtx).Err(); err == nil {
		status.Redis = "connected"
	}

	if h.nc.IsConnected() {
		status.NATS = "connected"
	}

	return status
}

// Healthy 全部依赖可用才算健康
func (h *Checker) Healthy(ctx context.Context) bool {
	status := h.Check(ctx)
	return status.Database == "connected" &&
		status.Redis == "connected" &&
		status.NATS == "connected"
}

// Live 存活探针，进程在即通过
func (h *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready 就绪探针，任一依赖不可用时返回 503
func (h *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Database != "connected" || status.Redis != "connected" || status.NATS != "connected" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}
