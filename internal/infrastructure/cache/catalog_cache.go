package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/port"

	"github.com/go-redis/redis/v8"
)

// CachedCatalog 给目录查询套一层 Redis 缓存
//
// 菜品是下单路径上被读得最多的数据（每个订单项查一次），价格和可售状态
// 短暂读旧是可接受的；餐桌/摊位查询频率低，直接透传。
// Redis 任何异常都降级回源库，缓存永远不是失败来源。
type CachedCatalog struct {
	inner port.CatalogRepository
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedCatalog(inner port.CatalogRepository, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedCatalog) GetTableByQRCode(ctx context.Context, qrCode string) (*model.Table, error) {
	return c.inner.GetTableByQRCode(ctx, qrCode)
}

func (c *CachedCatalog) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	return c.inner.GetTable(ctx, id)
}

func (c *CachedCatalog) GetStall(ctx context.Context, id int64) (*model.Stall, error) {
	return c.inner.GetStall(ctx, id)
}

func (c *CachedCatalog) GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error) {
	key := fmt.Sprintf("catalog:item:%d", id)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var item model.MenuItem
		if err := json.Unmarshal(data, &item); err == nil {
			return &item, nil
		}
		// 缓存内容损坏，删掉回源
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CachedCatalog] 读缓存失败，回源: key=%s, err=%v", key, err)
	}

	item, err := c.inner.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(item); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("[CachedCatalog] 写缓存失败: key=%s, err=%v", key, err)
		}
	}

	return item, nil
}
