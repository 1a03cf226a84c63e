package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"titleflow/backend/config"
	"titleflow/backend/internal/api/handler"
	"titleflow/backend/internal/api/middleware"
	"titleflow/backend/internal/model"
	"titleflow/backend/pkg/jwt"
	"titleflow/backend/pkg/redis"
)

// maxImportBodyBytes Excel 导入请求体上限
const maxImportBodyBytes = 10 << 20

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 行政区划
			geo := authorized.Group("/geo")
			{
				geo.GET("/states", h.Geo.States)
				geo.GET("/states/:state/districts", h.Geo.Districts)
			}

			// 网点模块
			hubs := authorized.Group("/hubs")
			{
				hubs.GET("", h.Hub.List)
				hubs.GET("/:id", h.Hub.Get)
				hubs.POST("", middleware.RoleAuth(model.RoleOps), h.Hub.Create)
				hubs.DELETE("/:id", middleware.RoleAuth(model.RoleOps), h.Hub.Delete)
			}

			// 承办律师模块
			advocates := authorized.Group("/advocates")
			{
				advocates.GET("", h.Advocate.List)
				advocates.GET("/loads", middleware.RoleAuth(model.RoleOps), h.Advocate.Loads)
				advocates.GET("/:id", h.Advocate.Get)
				advocates.POST("", middleware.RoleAuth(model.RoleOps), h.Advocate.Create)
				advocates.PUT("/:id", middleware.RoleAuth(model.RoleOps), h.Advocate.Update)
				advocates.DELETE("/:id", middleware.RoleAuth(model.RoleOps), h.Advocate.Deactivate)
			}

			// 工单模块
			assignments := authorized.Group("/assignments")
			{
				assignments.GET("", h.Assignment.List)
				assignments.POST("", middleware.RoleAuth(model.RoleOps, model.RoleRequester), h.Assignment.Create)
				assignments.POST("/import",
					middleware.RoleAuth(model.RoleOps),
					middleware.BodyLimit(maxImportBodyBytes),
					h.Assignment.Import)
				assignments.GET("/:id", h.Assignment.Get)
				assignments.GET("/:id/history", h.Assignment.History)
				assignments.POST("/:id/documents", middleware.RoleAuth(model.RoleAdvocate, model.RoleOps), h.Assignment.AddDocument)
				assignments.POST("/:id/query", middleware.RoleAuth(model.RoleAdvocate), h.Assignment.RaiseQuery)
				assignments.POST("/:id/query/respond", middleware.RoleAuth(model.RoleRequester, model.RoleOps), h.Assignment.RespondQuery)
				assignments.POST("/:id/complete", middleware.RoleAuth(model.RoleAdvocate), h.Assignment.MarkComplete)
				assignments.POST("/:id/review/start", middleware.RoleAuth(model.RoleOps), h.Assignment.StartReview)
				assignments.POST("/:id/review", middleware.RoleAuth(model.RoleOps), h.Assignment.Review)

				// 分单操作挂在工单下
				assignments.GET("/:id/candidates", middleware.RoleAuth(model.RoleOps), h.Allocation.Rank)
				assignments.POST("/:id/allocate", middleware.RoleAuth(model.RoleOps), h.Allocation.Allocate)
				assignments.POST("/:id/auto-allocate", middleware.RoleAuth(model.RoleOps), h.Allocation.AutoAllocate)
				assignments.POST("/:id/reallocate", middleware.RoleAuth(model.RoleOps), h.Allocation.Reallocate)
			}

			// 批量分单模块
			allocations := authorized.Group("/allocations")
			allocations.Use(middleware.RoleAuth(model.RoleOps))
			{
				allocations.POST("/bulk", h.Allocation.BulkAutoAllocate)
				// 智能分单走外部评分服务，单独限流
				allocations.POST("/smart",
					middleware.RateLimit(rdb, cfg.Scoring.RateLimit, cfg.Scoring.RateLimitSpan),
					h.Allocation.SmartAllocate)
			}
		}
	}

	return r
}
