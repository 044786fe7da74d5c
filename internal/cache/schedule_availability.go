package cache

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/internal/model"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss 快取中沒有這個時段，呼叫端應回源到 DB
var ErrCacheMiss = errors.New("availability cache miss")

const defaultAvailabilityTTL = 10 * time.Minute

type ScheduleAvailabilityCache interface {
	// 讀取：快取中的空位資訊
	Get(ctx context.Context, scheduleID int) (*model.Availability, error)
	// 寫入：版本較舊的資料會被拒絕 (使用Lua腳本確保原子性)
	Set(ctx context.Context, availability *model.Availability) (bool, error)
	// 刪除：時段被刪除時清掉快取
	Invalidate(ctx context.Context, scheduleID int) error
}

type RedisScheduleAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScheduleAvailabilityCache(client *redis.Client) ScheduleAvailabilityCache {
	return &RedisScheduleAvailabilityCache{
		client: client,
		ttl:    defaultAvailabilityTTL,
	}
}

func availabilityKey(scheduleID int) string {
	return fmt.Sprintf("schedule:%d:availability", scheduleID)
}

const setAvailabilityScript = `
	local key = KEYS[1]
	local version = tonumber(ARGV[1])

	-- 1. 已存在較新的版本就放棄寫入
	local current = redis.call('HGET', key, 'version')
	if current and tonumber(current) > version then
		return 0
	end

	-- 2. 寫入並刷新 TTL
	redis.call('HSET', key, 'version', ARGV[1], 'capacity', ARGV[2], 'count', ARGV[3])
	redis.call('EXPIRE', key, ARGV[4])
	return 1
`

func (c *RedisScheduleAvailabilityCache) Set(ctx context.Context, availability *model.Availability) (bool, error) {
	key := availabilityKey(availability.ScheduleID)

	result, err := c.client.Eval(ctx, setAvailabilityScript, []string{key},
		availability.Version,
		availability.Capacity,
		availability.ReservationCount,
		int64(c.ttl.Seconds()),
	).Int64()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (c *RedisScheduleAvailabilityCache) Get(ctx context.Context, scheduleID int) (*model.Availability, error) {
	result, err := c.client.HGetAll(ctx, availabilityKey(scheduleID)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	capacity, err := strconv.Atoi(result["capacity"])
	if err != nil {
		return nil, fmt.Errorf("invalid capacity: %v", err)
	}

	count, err := strconv.Atoi(result["count"])
	if err != nil {
		return nil, fmt.Errorf("invalid count: %v", err)
	}

	version, err := strconv.ParseInt(result["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version: %v", err)
	}

	schedule := model.Schedule{
		ID:               scheduleID,
		Capacity:         capacity,
		ReservationCount: count,
		UpdatedAt:        time.UnixMicro(version),
	}
	return schedule.Availability(), nil
}

func (c *RedisScheduleAvailabilityCache) Invalidate(ctx context.Context, scheduleID int) error {
	return c.client.Del(ctx, availabilityKey(scheduleID)).Err()
}
