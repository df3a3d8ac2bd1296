package admin

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"treehole/messages"
)

// Pool is the slice of db.DBPool the collector needs.
type Pool interface {
	OpenConnections() int
}

// Collector assembles MetricsResponse snapshots. Clients may be nil when no
// change feed is running.
type Collector struct {
	Name    string
	Type    string
	Store   messages.Store
	Pool    Pool
	Clients func() int
	Started time.Time
	Now     func() time.Time
}

func (c *Collector) Collect(ctx context.Context) (*MetricsResponse, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	stats, err := c.Store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect board stats: %w", err)
	}

	dbHealth := DatabaseHealth{
		Type:           c.Type,
		SizeBytes:      stats.SizeBytes,
		DatabaseSizeMB: stats.SizeBytes / (1024 * 1024),
	}
	if c.Pool != nil {
		dbHealth.ActiveConnections = c.Pool.OpenConnections()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	system := SystemHealth{
		MemoryUsageMB:  int64(m.Alloc / 1024 / 1024),
		HeapSizeMB:     int64(m.HeapAlloc / 1024 / 1024),
		GoroutineCount: runtime.NumGoroutine(),
	}
	if c.Clients != nil {
		system.WebSocketConnections = c.Clients()
	}

	ts := now()
	return &MetricsResponse{
		Timestamp: ts,
		Database:  dbHealth,
		Board: BoardMetrics{
			Messages:   stats.Messages,
			TotalLikes: stats.Likes,
		},
		System: system,
		App: AppHealth{
			Name:          c.Name,
			UptimeSeconds: int64(ts.Sub(c.Started).Seconds()),
		},
	}, nil
}
