package repository

import (
	"context"
	"errors"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound    = errors.New("订单不存在")
	ErrDuplicateOrderNo = errors.New("订单号已存在")
	ErrStaleStatus      = errors.New("订单状态已变化，请刷新后重试")
)

// isDuplicateKey MySQL 唯一索引冲突（错误码 1062）
func isDuplicateKey(err error) bool {
	var mysqlErr *mysqldrv.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单
// gorm 会把关联的 Items 和订单放在同一个事务里插入，保证原子性
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrderNo
		}
		return err
	}
	return nil
}

func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_no = ?", orderNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 状态变更，条件带上变更前状态做 compare-and-set
// 两个并发请求从同一个旧状态出发，只有先提交的生效，后者 0 行受影响拿到 ErrStaleStatus
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderNo string, fromStatus, toStatus string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ? AND status = ?", orderNo, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}

	return nil
}

func (r *OrderRepository) ListByStall(ctx context.Context, stallID int64, page, pageSize int) ([]*model.Order, int64, error) {
	return r.list(ctx, "stall_id = ?", stallID, page, pageSize)
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64, page, pageSize int) ([]*model.Order, int64, error) {
	return r.list(ctx, "customer_id = ?", customerID, page, pageSize)
}

func (r *OrderRepository) list(ctx context.Context, cond string, arg int64, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where(cond, arg)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}
