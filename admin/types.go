package admin

import (
	"time"
)

type MetricsResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Database  DatabaseHealth `json:"database"`
	Board     BoardMetrics   `json:"board"`
	System    SystemHealth   `json:"system"`
	App       AppHealth      `json:"app"`
}

type DatabaseHealth struct {
	Type              string `json:"type"`
	ActiveConnections int    `json:"active_connections"`
	DatabaseSizeMB    int64  `json:"database_size_mb"`
	SizeBytes         int64  `json:"size_bytes"`
}

type BoardMetrics struct {
	Messages   int64 `json:"messages"`
	TotalLikes int64 `json:"total_likes"`
}

type SystemHealth struct {
	MemoryUsageMB        int64 `json:"memory_usage_mb"`
	HeapSizeMB           int64 `json:"heap_size_mb"`
	GoroutineCount       int   `json:"goroutine_count"`
	WebSocketConnections int   `json:"websocket_connections"`
}

type AppHealth struct {
	Name          string `json:"name"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
