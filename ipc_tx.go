package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"dash-service/catalog"
	"dash-service/vehicle"

	"github.com/go-redis/redis/v8"
)

const (
	telemetryHashKey     = "vehicle-telemetry"
	telemetryNotifyChan  = "vehicle-telemetry"
	channelGearKey       = "gear"
	channelTurnSignalKey = "turn-signal"
)

// IPCTx mirrors event bus snapshots into the telemetry hash and
// publishes change notifications for the fields other services
// subscribe to.
type IPCTx struct {
	log      *LeveledLogger
	redis    *redis.Client
	mu       sync.Mutex
	ctx      context.Context
	lastGear string
	lastTurn string
}

func NewIPCTx(logger *LeveledLogger, redis *redis.Client) *IPCTx {
	return &IPCTx{
		log:   logger,
		redis: redis,
		ctx:   context.Background(),
	}
}

func (tx *IPCTx) Destroy() {}

// SendSnapshot writes the full snapshot in one pipeline. Gear and
// turn signal changes additionally publish a notification so
// subscribers do not have to poll the hash.
func (tx *IPCTx) SendSnapshot(snapshot map[string]vehicle.Event) error {
	if len(snapshot) == 0 {
		return nil
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	fields := make(map[string]interface{}, len(snapshot))
	for channel, ev := range snapshot {
		fields[channel] = formatValue(ev.Value)
	}

	pipe := tx.redis.Pipeline()
	pipe.HSet(tx.ctx, telemetryHashKey, fields)

	if gear, ok := snapshot[channelGearKey]; ok {
		if s := gear.Value.String(); s != tx.lastGear {
			tx.lastGear = s
			pipe.Publish(tx.ctx, telemetryNotifyChan, channelGearKey)
		}
	}
	if turn, ok := snapshot[channelTurnSignalKey]; ok {
		if s := turn.Value.String(); s != tx.lastTurn {
			tx.lastTurn = s
			pipe.Publish(tx.ctx, telemetryNotifyChan, channelTurnSignalKey)
		}
	}

	if _, err := pipe.Exec(tx.ctx); err != nil {
		return fmt.Errorf("failed to send snapshot: %v", err)
	}
	return nil
}

func formatValue(v catalog.Value) string {
	if v.Kind == catalog.KindFloat {
		return strconv.FormatFloat(v.Num, 'f', 1, 64)
	}
	return v.String()
}
