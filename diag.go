package main

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

const (
	diagGroupName           = "vehicle-telemetry"
	diagStaleSetKey         = "vehicle-telemetry:stale"
	diagEventStream         = "events:telemetry"
	diagEventStreamMaxLen   = 1000
	diagNotificationChannel = "vehicle-telemetry"
)

// Diag tracks parameter health: polled parameters that stopped
// answering, and the bus link itself. Transitions go into a capped
// event stream and a membership set other services can query.
type Diag struct {
	log        *LeveledLogger
	redis      *redis.Client
	mu         sync.RWMutex
	staleState map[string]bool
	ctx        context.Context
}

func NewDiag(logger *LeveledLogger, redis *redis.Client) *Diag {
	return &Diag{
		log:        logger,
		redis:      redis,
		staleState: make(map[string]bool),
		ctx:        context.Background(),
	}
}

func (d *Diag) Destroy() {}

// SetParameterStale records a staleness transition for a polled
// parameter. Repeated reports of the same state are ignored.
func (d *Diag) SetParameterStale(name string, stale bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.staleState[name] == stale {
		return
	}
	d.staleState[name] = stale

	if stale {
		d.log.Warn("Parameter stale: %s", name)
		d.reportStale(name)
	} else {
		d.log.Info("Parameter recovered: %s", name)
		d.reportRecovered(name)
	}
}

// ReportLinkDown records a fatal bus link failure.
func (d *Diag) ReportLinkDown(device string, cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pipe := d.redis.Pipeline()

	pipe.XAdd(d.ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Values: map[string]interface{}{
			"group":  diagGroupName,
			"event":  "link-down",
			"device": device,
			"cause":  cause.Error(),
		},
	})

	pipe.Publish(d.ctx, diagNotificationChannel, "link-down")

	if _, err := pipe.Exec(d.ctx); err != nil {
		d.log.Error("Failed to report link down: %v", err)
	}
}

func (d *Diag) reportStale(name string) {
	pipe := d.redis.Pipeline()

	pipe.SAdd(d.ctx, diagStaleSetKey, name)

	pipe.XAdd(d.ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Values: map[string]interface{}{
			"group":     diagGroupName,
			"event":     "stale",
			"parameter": name,
		},
	})

	pipe.Publish(d.ctx, diagNotificationChannel, "stale")

	if _, err := pipe.Exec(d.ctx); err != nil {
		d.log.Error("Failed to report stale parameter: %v", err)
	}
}

func (d *Diag) reportRecovered(name string) {
	pipe := d.redis.Pipeline()

	pipe.SRem(d.ctx, diagStaleSetKey, name)

	pipe.XAdd(d.ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Values: map[string]interface{}{
			"group":     diagGroupName,
			"event":     "recovered",
			"parameter": name,
		},
	})

	pipe.Publish(d.ctx, diagNotificationChannel, "stale")

	if _, err := pipe.Exec(d.ctx); err != nil {
		d.log.Error("Failed to report recovered parameter: %v", err)
	}
}
