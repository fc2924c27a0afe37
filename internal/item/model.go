package item

import "time"

// ItemState 定义了 item_states 表中一行的数据结构
// 每个item_id只会存在一行，写入时整体替换可变字段
type ItemState struct {
	// ItemID 是物品的唯一字符串ID，作为业务主键
	ItemID string `gorm:"column:item_id;primaryKey" json:"item_id"`

	// Status 是自由文本的状态标签，例如 "done"
	Status string `gorm:"not null" json:"status"`

	// Remark 是可选的备注，缺省时持久化为NULL
	Remark *string `json:"remark"`

	// UpdatedAt 由服务端在每次成功写入时刷新
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定gorm使用的表名
func (ItemState) TableName() string {
	return "item_states"
}

// StatusValue 是批量查询响应中每个条目的值
// 响应按item_id重新组织为字典，因此值里不再重复item_id
type StatusValue struct {
	Status    string    `json:"status"`
	Remark    *string   `json:"remark"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertRequestBody 定义了前端提交状态时，请求体的JSON结构
type UpsertRequestBody struct {
	ItemID string  `json:"itemId" binding:"required"`
	Status string  `json:"status" binding:"required"`
	Remark *string `json:"remark"`
}
