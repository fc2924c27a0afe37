package shutdown

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/item-status-backend/pkg/lifecycle"
)

const (
	httpTimeout       = 15 * time.Second
	backgroundTimeout = 10 * time.Second
)

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
// 顺序：先排空HTTP服务器，让进行中的请求归还连接，再停掉后台服务。
func ListenForSignalsAndShutdown(server *http.Server, manager *lifecycle.Manager) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 阻塞直到接收到停机信号
	<-sigChan
	fmt.Println("\n收到关闭信号，开始优雅停机...")

	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("HTTP服务器关闭错误: %v\n", err)
	} else {
		fmt.Println("HTTP服务器已关闭。")
	}

	// 停掉后台服务
	remaining := manager.Shutdown(backgroundTimeout)
	if len(remaining) == 0 {
		fmt.Println("所有后台服务已退出。")
	} else {
		fmt.Printf("警告: 以下后台服务未能在 %v 内退出: %v\n", backgroundTimeout, remaining)
	}

	fmt.Println("优雅停机完成。")
}
