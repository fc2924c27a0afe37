package item

import (
	"context"
)

// Repository 是ItemState的存储端口。
// 两个后端实现：关系型数据库（gorm）和Supabase托管API。
// 服务逻辑不感知接线的是哪一个实现。
type Repository interface {
	// GetOne 按item_id精确查找。记录不存在时返回 (nil, nil)，不是错误。
	GetOne(ctx context.Context, itemID string) (*ItemState, error)

	// GetAll 返回全部记录。空存储返回空切片。
	GetAll(ctx context.Context) ([]ItemState, error)

	// Upsert 以item_id为键原子地插入或替换，返回实际持久化后的行。
	Upsert(ctx context.Context, itemID, status string, remark *string) (*ItemState, error)
}

// unavailableRepository 在必要配置缺失时接线。
// 每次调用都返回同一个配置错误，直到配置修复、服务重启。
type unavailableRepository struct {
	err error
}

// NewUnavailableRepository 创建一个始终失败的Repository。
func NewUnavailableRepository(err error) Repository {
	return &unavailableRepository{err: err}
}

func (r *unavailableRepository) GetOne(ctx context.Context, itemID string) (*ItemState, error) {
	return nil, r.err
}

func (r *unavailableRepository) GetAll(ctx context.Context) ([]ItemState, error) {
	return nil, r.err
}

func (r *unavailableRepository) Upsert(ctx context.Context, itemID, status string, remark *string) (*ItemState, error) {
	return nil, r.err
}
