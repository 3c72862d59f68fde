package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetwatch/config"
	"fleetwatch/models"
)

const deviceStateTTL = 24 * time.Hour

// DeviceStateCache mirrors each device's latest reported state into redis so
// fleet-map reads do not have to touch the event log.
type DeviceStateCache struct {
	client *redis.Client
}

// New connects to redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*DeviceStateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &DeviceStateCache{client: client}, nil
}

// Close releases the client.
func (c *DeviceStateCache) Close() error {
	return c.client.Close()
}

// UpdateFromIgnition writes the device's last-seen state from an ignition event.
func (c *DeviceStateCache) UpdateFromIgnition(ctx context.Context, ev *models.IgnitionEvent) error {
	key := deviceKey(ev.DeviceID)

	fields := map[string]interface{}{
		"device_id":   ev.DeviceID,
		"last_seen":   ev.Timestamp.Unix(),
		"ignition_on": ev.IgnitionOn,
	}
	if ev.Voltage != nil {
		fields["voltage"] = *ev.Voltage
	}
	if ev.Location != nil {
		fields["lat"] = ev.Location.Lat
		fields["lon"] = ev.Location.Lon
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, deviceStateTTL)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update device state: %w", err)
	}
	return nil
}

// UpdateFromException records the device's last exception.
func (c *DeviceStateCache) UpdateFromException(ctx context.Context, ev *models.ExceptionEvent) error {
	key := deviceKey(ev.DeviceID)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"device_id":         ev.DeviceID,
		"last_exception":    ev.Category,
		"last_exception_at": ev.Timestamp.Unix(),
	})
	pipe.Expire(ctx, key, deviceStateTTL)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update device exception state: %w", err)
	}
	return nil
}

// GetDeviceState reads the cached state hash for a device.
func (c *DeviceStateCache) GetDeviceState(ctx context.Context, deviceID string) (map[string]string, error) {
	state, err := c.client.HGetAll(ctx, deviceKey(deviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read device state: %w", err)
	}
	return state, nil
}

func deviceKey(deviceID string) string {
	return "fleet:device:" + deviceID
}
