package item

import (
	"context"
	"net/http"
	"time"

	"github.com/SlpAus/item-status-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
)

// repo 是模块级的存储端口，由Setup根据配置接线
var repo Repository

// storageTimeout 是单次存储操作的超时，防止后端卡死拖垮请求
var storageTimeout = 5 * time.Second

// requestContext 为一次存储操作派生出带超时的上下文
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storageTimeout)
}

// GetStatus 处理 GET /api/status
// 带itemId查询参数时返回单条记录，否则返回全部记录组成的字典
func GetStatus(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	itemID := c.Query("itemId")
	if itemID == "" {
		getAllStatus(ctx, c)
		return
	}

	state, err := repo.GetOne(ctx, itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if state == nil {
		// 查不到记录也是成功结果，返回null而不是404
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, state)
}

// getAllStatus 返回按item_id重新组织的全量字典
func getAllStatus(ctx context.Context, c *gin.Context) {
	states, err := repo.GetAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := make(map[string]StatusValue, len(states))
	for _, state := range states {
		result[state.ItemID] = StatusValue{
			Status:    state.Status,
			Remark:    state.Remark,
			UpdatedAt: state.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, result)
}

// UpsertStatus 处理 POST /api/status
func UpsertStatus(c *gin.Context) {
	var body UpsertRequestBody

	// 1. 绑定并验证请求体，校验失败时不触碰存储
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "itemId and status are required"})
		return
	}

	// 2. 显式传入的空备注与省略等价，统一持久化为NULL
	if body.Remark != nil && *body.Remark == "" {
		body.Remark = nil
	}

	// 3. 以item_id为键原子地插入或替换
	ctx, cancel := requestContext(c)
	defer cancel()

	state, err := repo.Upsert(ctx, body.ItemID, body.Status, body.Remark)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 4. 返回实际持久化后的行，updated_at由服务端赋值
	c.JSON(http.StatusOK, state)
}

// Preflight 处理非预检的OPTIONS请求
// 浏览器的CORS预检由中间件先行应答，这里兜底返回200空响应
func Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// MethodNotAllowed 处理识别之外的HTTP方法
// 按照合同返回纯文本405，区别于JSON形式的错误响应
func MethodNotAllowed(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
}

// healthProbeID 是健康检查用的探测键，按主键查询一条不存在的记录
// 对任何后端都是一次最廉价的存储往返
const healthProbeID = "__health_probe__"

// GetHealth 处理 GET /api/health
// 探测存储可达性并报告缓存健康状态；存储不可达时返回503
func GetHealth(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	status := "ok"
	storage := "ok"
	code := http.StatusOK
	if _, err := repo.GetOne(ctx, healthProbeID); err != nil {
		status = "degraded"
		storage = err.Error()
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"storage":      storage,
		"cacheHealthy": database.IsRedisHealthy(),
	})
}
