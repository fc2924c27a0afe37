package item

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()

	// 每个测试使用独立的共享缓存内存库，连接池内的连接看到同一份数据
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&ItemState{}); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	// 单连接池：内存库随连接存在，也让并发写入在池里排队
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	t.Cleanup(func() { sqlDB.Close() })

	return NewGormRepository(db), db
}

func strPtr(s string) *string {
	return &s
}

func TestUpsertInsertsThenReplaces(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, "a", "pending", nil)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.ItemID != "a" || first.Status != "pending" {
		t.Errorf("期望 a/pending，得到 %s/%s", first.ItemID, first.Status)
	}
	if first.Remark != nil {
		t.Errorf("期望remark为nil，得到 %q", *first.Remark)
	}
	if first.UpdatedAt.IsZero() {
		t.Error("期望updated_at被赋值")
	}

	second, err := repo.Upsert(ctx, "a", "done", strPtr("ok"))
	if err != nil {
		t.Fatalf("第二次Upsert: %v", err)
	}
	if second.Status != "done" {
		t.Errorf("期望status为done，得到 %q", second.Status)
	}
	if second.Remark == nil || *second.Remark != "ok" {
		t.Errorf("期望remark为ok，得到 %v", second.Remark)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("updated_at不应回退: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}

	// 同一个item_id始终只有一行
	var count int64
	if err := db.Model(&ItemState{}).Count(&count).Error; err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("期望1行，得到 %d 行", count)
	}
}

func TestUpsertSequenceKeepsSingleRow(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	var lastUpdated time.Time
	for i := 0; i < 5; i++ {
		state, err := repo.Upsert(ctx, "machine-1", fmt.Sprintf("step-%d", i), nil)
		if err != nil {
			t.Fatalf("第%d次Upsert: %v", i, err)
		}
		if state.UpdatedAt.Before(lastUpdated) {
			t.Errorf("第%d次写入后updated_at回退", i)
		}
		lastUpdated = state.UpdatedAt
	}

	var count int64
	db.Model(&ItemState{}).Count(&count)
	if count != 1 {
		t.Errorf("期望1行，得到 %d 行", count)
	}

	final, err := repo.GetOne(ctx, "machine-1")
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if final == nil || final.Status != "step-4" {
		t.Errorf("期望最后一次写入的status留存，得到 %+v", final)
	}
}

func TestGetOneMissingReturnsNil(t *testing.T) {
	repo, _ := newTestRepository(t)

	state, err := repo.GetOne(context.Background(), "never-written")
	if err != nil {
		t.Fatalf("GetOne不应返回错误: %v", err)
	}
	if state != nil {
		t.Errorf("期望nil，得到 %+v", state)
	}
}

func TestGetAll(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	// 空存储返回空结果
	states, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("期望空结果，得到 %d 条", len(states))
	}

	repo.Upsert(ctx, "a", "done", strPtr("ok"))
	repo.Upsert(ctx, "b", "pending", nil)

	states, err = repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("期望2条，得到 %d 条", len(states))
	}
}

func TestConcurrentUpsertSameKey(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	inputs := map[string]string{
		"writer-a": "remark-a",
		"writer-b": "remark-b",
	}

	var wg sync.WaitGroup
	for status, remark := range inputs {
		wg.Add(1)
		go func(status, remark string) {
			defer wg.Done()
			if _, err := repo.Upsert(ctx, "contested", status, strPtr(remark)); err != nil {
				t.Errorf("并发Upsert: %v", err)
			}
		}(status, remark)
	}
	wg.Wait()

	var count int64
	db.Model(&ItemState{}).Count(&count)
	if count != 1 {
		t.Errorf("期望1行，得到 %d 行", count)
	}

	final, err := repo.GetOne(ctx, "contested")
	if err != nil || final == nil {
		t.Fatalf("GetOne: state=%v err=%v", final, err)
	}

	// 最终状态必须完整来自其中一个写入者，不允许字段混合
	expectedRemark, ok := inputs[final.Status]
	if !ok {
		t.Fatalf("status %q 不属于任何写入者", final.Status)
	}
	if final.Remark == nil || *final.Remark != expectedRemark {
		t.Errorf("status %q 对应的remark应为 %q，得到 %v", final.Status, expectedRemark, final.Remark)
	}
}
