package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// ValidStatusTransitions 订单状态机
// COMPLETED / CANCELLED 是终态，不在 map 中出现，任何后续变更都会被拒绝
var ValidStatusTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// IsTerminalStatus 终态判断
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

const (
	PaymentModeCash    = "CASH"
	PaymentModePayNow  = "PAYNOW"
	PaymentModeGrabPay = "GRABPAY"
	PaymentModePayLah  = "PAYLAH"
)

func IsValidPaymentMode(mode string) bool {
	switch mode {
	case PaymentModeCash, PaymentModePayNow, PaymentModeGrabPay, PaymentModePayLah:
		return true
	}
	return false
}

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Order 订单表
// 订单和订单项一次事务内创建，创建后除 status / payment_status / paid_at / updated_at 外不可变
// 订单只增不删，取消也只是进入 CANCELLED 终态
type Order struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	TableID       int64           `gorm:"index;not null" json:"table_id"`
	StallID       int64           `gorm:"index;not null" json:"stall_id"`
	CustomerID    *int64          `gorm:"index" json:"customer_id"` // 可空，允许游客下单
	Status        string          `gorm:"type:varchar(20);index;not null" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"` // 服务端按目录价计算，绝不信任客户端
	PaymentMode   string          `gorm:"type:varchar(20);not null" json:"payment_mode"`
	PaymentStatus string          `gorm:"type:varchar(20);index;not null" json:"payment_status"`
	PaidAt        *time.Time      `json:"paid_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string {
	return "hawker_order"
}

func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.Status)
}

// OrderItem 订单项
// UnitPrice 是下单时刻的价格快照，创建后不再回读目录价
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"index;not null" json:"order_id"`
	MenuItemID          int64           `gorm:"not null" json:"menu_item_id"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	SpecialInstructions string          `gorm:"type:varchar(256)" json:"special_instructions"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderItem) TableName() string {
	return "hawker_order_item"
}
