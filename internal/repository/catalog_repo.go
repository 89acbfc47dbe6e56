package repository

import (
	"context"
	"errors"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTableNotFound    = errors.New("餐桌不存在")
	ErrStallNotFound    = errors.New("摊位不存在")
	ErrMenuItemNotFound = errors.New("菜品不存在")
)

// CatalogRepository 目录只读查询
// 目录的维护（摊主改菜单、后台建桌）不在订单引擎里，这里只做读取
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetTableByQRCode(ctx context.Context, qrCode string) (*model.Table, error) {
	var table model.Table
	err := r.db.WithContext(ctx).Where("qr_code = ?", qrCode).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &table, nil
}

func (r *CatalogRepository) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	var table model.Table
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &table, nil
}

func (r *CatalogRepository) GetStall(ctx context.Context, id int64) (*model.Stall, error) {
	var stall model.Stall
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&stall).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStallNotFound
		}
		return nil, err
	}
	return &stall, nil
}

func (r *CatalogRepository) GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error) {
	var item model.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return &item, nil
}
