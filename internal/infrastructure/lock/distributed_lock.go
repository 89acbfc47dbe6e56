package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 【为什么支付确认要加锁？】
//
// 场景：支付渠道对同一笔交易连发两次回调（渠道侧重试很常见）
//
// 没有锁时：
//   回调1: 查无支付记录 -> 插入 -> 更新订单为已支付
//   回调2: 查无支付记录 -> 插入 -> 撞唯一索引报错
// 唯一索引能兜底不重复入账，但第二个请求会走到错误分支，
// 加锁让并发回调串行化，第二个直接命中"已存在"走无副作用返回。
//
// 【Redis 锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: key 不存在才设置（互斥）
//   - EX: 过期时间（持锁方崩溃时自动释放，防死锁）
//   - value: 持有者标识，释放时校验，防止误删别人的锁
//
// 释放：Lua 脚本先校验 value 再删除，保证"检查+删除"原子
//
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本校验 value 匹配才删除，避免锁过期后误删后来者的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// port.Locker 适配
// ============================================================================

// RedisLocker 把 DistributedLock 包成 service 层依赖的 Acquire/release 形式
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (rl *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	dl := NewDistributedLock(rl.client, key, uuid.NewString(), ttl)
	if err := dl.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, err
	}
	release := func() {
		// 释放失败由过期时间兜底
		_ = dl.Unlock(context.Background())
	}
	return release, nil
}
