package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/SlpAus/item-status-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// StateHashKey 是缓存ItemState的Redis Hash键，field为item_id
const StateHashKey = "item:state"

// baseRepo 是未经缓存装饰的底层存储，供预热和热重建使用
var baseRepo Repository

// cacheMu 保证预热与写透之间的互斥。
// 预热持有写锁，覆盖从读取存储快照到写入Redis的全过程；
// 每次Upsert持有读锁，覆盖从持久化到写透缓存的全过程。
// 否则一次在快照之后落库的写入，可能被预热用快照里的旧值覆盖。
var cacheMu sync.RWMutex

// cachedRepository 在底层存储外加一层Redis读缓存。
// 单条读取命中缓存时不再访问存储；写入成功后写透缓存。
// 缓存只是加速层，Redis不可用时所有请求直接走存储。
type cachedRepository struct {
	inner Repository
}

// NewCachedRepository 用Redis缓存包装一个Repository。
func NewCachedRepository(inner Repository) Repository {
	return &cachedRepository{inner: inner}
}

func (r *cachedRepository) GetOne(ctx context.Context, itemID string) (*ItemState, error) {
	if database.IsRedisHealthy() {
		cached, err := database.RDB.HGet(ctx, StateHashKey, itemID).Result()
		if err == nil {
			var state ItemState
			if jsonErr := json.Unmarshal([]byte(cached), &state); jsonErr == nil {
				return &state, nil
			}
			// 缓存内容损坏时回退到存储
		} else if !errors.Is(err, redis.Nil) {
			// 连接类错误交给健康检查器处理，本次请求回退到存储
			fmt.Printf("缓存读取失败，回退到存储: %v\n", err)
		}
	}
	return r.inner.GetOne(ctx, itemID)
}

func (r *cachedRepository) GetAll(ctx context.Context) ([]ItemState, error) {
	// 批量读取始终走存储，保证与持久化状态一致
	return r.inner.GetAll(ctx)
}

func (r *cachedRepository) Upsert(ctx context.Context, itemID, status string, remark *string) (*ItemState, error) {
	// 读锁跨越持久化和写透，保证不会与一次预热交错
	cacheMu.RLock()
	defer cacheMu.RUnlock()

	state, err := r.inner.Upsert(ctx, itemID, status, remark)
	if err != nil {
		return nil, err
	}

	// 写透缓存。失败只降级，不影响已持久化的写入结果。
	if database.IsRedisHealthy() {
		if data, jsonErr := json.Marshal(state); jsonErr == nil {
			if cacheErr := database.RDB.HSet(ctx, StateHashKey, state.ItemID, data).Err(); cacheErr != nil {
				fmt.Printf("缓存写入失败: %v\n", cacheErr)
			}
		}
	}
	return state, nil
}

// WarmupCache 从存储加载全部记录到Redis。
// 持有写锁直到快照完整写入，期间的Upsert会在写透前排队等待，
// 避免预热用旧快照覆盖并发写入刚写透的新值。
func WarmupCache() error {
	if baseRepo == nil {
		return errors.New("item模块尚未初始化，无法预热缓存")
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	states, err := baseRepo.GetAll(database.Ctx)
	if err != nil {
		return fmt.Errorf("无法从存储读取状态数据: %w", err)
	}

	pipe := database.RDB.Pipeline()
	pipe.Del(database.Ctx, StateHashKey)
	for _, state := range states {
		data, jsonErr := json.Marshal(state)
		if jsonErr != nil {
			return fmt.Errorf("序列化item '%s' 失败: %w", state.ItemID, jsonErr)
		}
		pipe.HSet(database.Ctx, StateHashKey, state.ItemID, data)
	}

	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热状态数据到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 条状态记录到Redis。\n", len(states))
	return nil
}
