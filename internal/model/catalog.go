package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 目录实体（熟食中心 / 摊位 / 餐桌 / 菜品）
// 订单引擎只读这些表，目录的增删改由后台系统负责

// Hawker 熟食中心
type Hawker struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Hawker) TableName() string {
	return "hawker"
}

// Stall 摊位，隶属于一个熟食中心，由 OwnerID 对应的摊主运营
type Stall struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	HawkerID  int64     `gorm:"index;not null" json:"hawker_id"`
	OwnerID   int64     `gorm:"index;not null" json:"owner_id"` // 摊主用户ID
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	IsOpen    bool      `gorm:"not null;default:true" json:"is_open"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Stall) TableName() string {
	return "stall"
}

// Table 餐桌，桌面二维码只用于定位 熟食中心+桌号 的点餐上下文
type Table struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	HawkerID  int64     `gorm:"index;not null" json:"hawker_id"`
	Number    int       `gorm:"not null" json:"number"`
	QRCode    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"qr_code"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Table) TableName() string {
	return "dining_table"
}

// MenuItem 菜品
// Price 是下单时快照定价的来源，客户端提交的价格一律不信任
type MenuItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	StallID     int64           `gorm:"index;not null" json:"stall_id"`
	Name        string          `gorm:"type:varchar(128);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	IsAvailable bool            `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MenuItem) TableName() string {
	return "menu_item"
}
