package item

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormRepository 是基于gorm的关系型存储实现，SQLite和PostgreSQL共用。
type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository 创建一个关系型后端的Repository。
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOne(ctx context.Context, itemID string) (*ItemState, error) {
	var state ItemState
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 记录不存在是正常结果，不是错误
			return nil, nil
		}
		return nil, fmt.Errorf("查询item_states失败: %w", err)
	}
	return &state, nil
}

func (r *gormRepository) GetAll(ctx context.Context) ([]ItemState, error) {
	var states []ItemState
	if err := r.db.WithContext(ctx).Find(&states).Error; err != nil {
		return nil, fmt.Errorf("读取item_states失败: %w", err)
	}
	return states, nil
}

func (r *gormRepository) Upsert(ctx context.Context, itemID, status string, remark *string) (*ItemState, error) {
	state := ItemState{
		ItemID:    itemID,
		Status:    status,
		Remark:    remark,
		UpdatedAt: time.Now().UTC(),
	}

	// 使用GORM的OnConflict子句实现原子的插入或替换。
	// item_id已有记录时，只替换status、remark和updated_at。
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "remark", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return nil, fmt.Errorf("写入item_states失败: %w", err)
	}

	// 重新读取，向调用方返回数据库中实际持久化的行
	var persisted ItemState
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&persisted).Error; err != nil {
		return nil, fmt.Errorf("回读item_states失败: %w", err)
	}
	return &persisted, nil
}
