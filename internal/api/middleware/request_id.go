package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// 外部传入的 X-Request-ID 超过该长度时弃用并重新生成，防止日志注入
const requestIDMaxLen = 64

// RequestID 为每个请求分配追踪 ID。
// 调用方带 X-Request-ID 时沿用（便于跨服务串联工单操作链路），
// 否则生成 UUID；最终写回 gin.Context 与响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}
