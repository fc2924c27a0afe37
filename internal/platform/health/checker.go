package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/item-status-backend/internal/item"
	"github.com/SlpAus/item-status-backend/internal/platform/database"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// getRedisRunID 从Redis服务器信息中提取run_id
// run_id在Redis每次重启后都会变化，用它来区分"网络抖动"和"重启丢数据"
func getRedisRunID() (string, error) {
	ctx, cancel := context.WithTimeout(database.Ctx, pingTimeout)
	defer cancel()
	info, err := database.RDB.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	re := regexp.MustCompile(`run_id:([a-f0-9]+)`)
	matches := re.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", fmt.Errorf("无法在Redis INFO中找到run_id")
	}
	return matches[1], nil
}

// InitializeRunID 在应用启动时执行一次，获取并设置初始的run_id。
func InitializeRunID() error {
	runID, err := getRedisRunID()
	if err != nil {
		return fmt.Errorf("无法在启动时获取Redis Run ID: %w", err)
	}
	database.SetInitialRunID(runID)
	fmt.Printf("获取初始Redis Run ID成功: %s\n", runID)
	return nil
}

// triggerAtomicRewarm 执行一次原子的、自校验的缓存重建。
// 只有在重建期间Redis没有再次重启的情况下，才认为重建成功。
func triggerAtomicRewarm(idBeforeRewarm string) bool {
	fmt.Println("健康检查: 检测到Redis重启，正在重新预热缓存...")
	if err := item.WarmupCache(); err != nil {
		fmt.Printf("健康检查错误: 缓存预热失败: %v\n", err)
		return false
	}

	// 预热后再次检查run_id以确认原子性
	idAfterRewarm, err := getRedisRunID()
	if err != nil {
		fmt.Println("健康检查错误: 缓存预热后无法连接到Redis，预热无效。")
		return false
	}
	if idBeforeRewarm != idAfterRewarm {
		fmt.Printf("健康检查错误: 预热期间检测到Redis再次重启 (run_id: %s -> %s)。预热无效。\n", idBeforeRewarm, idAfterRewarm)
		return false
	}

	fmt.Println("健康检查: 缓存重新预热成功。")
	return true
}

// PerformCheck 执行一次完整的健康检查和可能的修复操作。
func PerformCheck() {
	currentRunID, err := getRedisRunID()
	if err != nil {
		// 无法连接到Redis，直接标记为不可用
		database.UpdateStatus(false, "")
		return
	}

	lastKnownRunID := database.GetLastKnownRunID()
	if currentRunID != lastKnownRunID {
		// Redis重启过，缓存内容已丢失，重建成功前保持不可用
		if triggerAtomicRewarm(currentRunID) {
			database.UpdateStatus(true, currentRunID)
		} else {
			database.UpdateStatus(false, "")
		}
		return
	}

	// run_id未变，说明服务健康
	database.UpdateStatus(true, currentRunID)
}

// RunChecker 以固定间隔执行健康检查，直到停机信号到来。
// 由生命周期管理器作为后台服务启动。
func RunChecker(ctx context.Context) {
	fmt.Println("Redis健康检查器已启动。")
	timer := time.NewTimer(checkInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Redis健康检查器已退出。")
			return
		case <-timer.C:
			PerformCheck()
			timer.Reset(checkInterval)
		}
	}
}
