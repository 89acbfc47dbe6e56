// Package port 定义 service 层依赖的窄接口
// 具体实现在 internal/repository / internal/eventbus / internal/notifier，
// 测试里用内存 mock 替换，service 不感知任何具体存储
package port

import (
	"context"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
)

// OrderRepository 订单存储
type OrderRepository interface {
	// Create 订单和订单项在一个事务内落库；订单号撞唯一索引时返回 repository.ErrDuplicateOrderNo
	Create(ctx context.Context, order *model.Order) error

	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)

	// UpdateStatus 按读取时的当前状态做 compare-and-set，
	// 并发竞争中落败（0行受影响）返回 repository.ErrStaleStatus
	UpdateStatus(ctx context.Context, orderNo string, fromStatus, toStatus string) error

	ListByStall(ctx context.Context, stallID int64, page, pageSize int) ([]*model.Order, int64, error)
	ListByCustomer(ctx context.Context, customerID int64, page, pageSize int) ([]*model.Order, int64, error)
}

// CatalogRepository 目录只读查询（餐桌/摊位/菜品）
type CatalogRepository interface {
	GetTableByQRCode(ctx context.Context, qrCode string) (*model.Table, error)
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	GetStall(ctx context.Context, id int64) (*model.Stall, error)
	GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error)
}

// PaymentStore 支付确认存储
type PaymentStore interface {
	GetByOrderAndTransaction(ctx context.Context, orderID int64, transactionID string) (*model.Payment, error)

	// Confirm 一个事务内：插入支付记录 + 订单 payment_status PENDING->COMPLETED + 写入 paid_at
	// (order_id, transaction_id) 撞唯一索引返回 repository.ErrDuplicatePayment，
	// 订单已是 COMPLETED 返回 repository.ErrOrderAlreadyPaid
	Confirm(ctx context.Context, payment *model.Payment, orderNo string) error

	// RecordFailure 记录一笔失败的支付信号，订单 payment_status PENDING->FAILED
	RecordFailure(ctx context.Context, payment *model.Payment, orderNo string) error
}

// EventBus 事件扇出，发布方在存储提交之后调用，失败/延迟不影响触发它的操作
type EventBus interface {
	Publish(topic string, ev eventbus.Event)
}

// Notifier 推送通知投递（外部协作方）
// 错误由调用方记日志后吞掉，绝不作为订单/支付操作的失败向上传播
type Notifier interface {
	NotifyStall(ctx context.Context, order *model.Order) error
	NotifyCustomer(ctx context.Context, order *model.Order) error
}

// Locker 分布式锁，Acquire 成功后返回释放函数
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
