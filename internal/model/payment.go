package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment 支付确认记录
//
// (OrderID, TransactionID) 唯一索引是幂等的最终防线：
// 同一笔外部交易重复回调，只有第一次会落库，之后都是读已有记录的无副作用返回
type Payment struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"uniqueIndex:uk_order_txn;not null" json:"order_id"`
	TransactionID string          `gorm:"type:varchar(64);uniqueIndex:uk_order_txn;not null" json:"transaction_id"` // 外部渠道交易号
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CompletedAt   *time.Time      `json:"completed_at"`
	Metadata      string          `gorm:"type:text" json:"metadata"` // 渠道原始报文，不解析
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}
