package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"

	"gorm.io/gorm"
)

var (
	ErrDuplicatePayment = errors.New("支付记录已存在")
	ErrOrderAlreadyPaid = errors.New("订单已完成支付")
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByOrderAndTransaction(ctx context.Context, orderID int64, transactionID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// Confirm 首次确认支付
// 一个事务内完成：插入支付记录 + 订单支付状态 PENDING->COMPLETED + 写入 paid_at
// (order_id, transaction_id) 唯一索引是并发回调下幂等的最终防线
func (r *PaymentRepository) Confirm(ctx context.Context, payment *model.Payment, orderNo string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicatePayment
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&model.Order{}).
			Where("order_no = ? AND payment_status = ?", orderNo, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"payment_status": model.PaymentStatusCompleted,
				"paid_at":        &now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 订单已经被另一笔交易置为 COMPLETED，回滚本次插入
			return ErrOrderAlreadyPaid
		}

		return nil
	})
}

// RecordFailure 记录渠道回调的失败信号
// 失败记录同样落 payment 表（审计用），订单支付状态 PENDING->FAILED
func (r *PaymentRepository) RecordFailure(ctx context.Context, payment *model.Payment, orderNo string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicatePayment
			}
			return err
		}

		result := tx.Model(&model.Order{}).
			Where("order_no = ? AND payment_status = ?", orderNo, model.PaymentStatusPending).
			Update("payment_status", model.PaymentStatusFailed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOrderAlreadyPaid
		}

		return nil
	})
}
