package router

import (
	"html/template"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/api/handler"
	"github.com/cjenwere4/5590-check-in-app/internal/api/middleware"
	"github.com/cjenwere4/5590-check-in-app/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时提交限流降级为放行
func Setup(cfg *config.Config, h *handler.Handler, tmpl *template.Template, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.TabSession())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 页面 ──
	r.GET("/", h.Page.CheckIn)
	r.GET("/icebreakers", h.Page.Icebreakers)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 签到模块
		flows := v1.Group("/check-in/flows")
		{
			flows.GET("/:id", h.CheckIn.GetFlow)
			flows.POST("/:id/position", h.CheckIn.ReportPosition)
			flows.POST("/:id/submit",
				middleware.RateLimit(rdb, cfg.Server.SubmitRateLimit, cfg.Server.SubmitRateWindow, logger),
				h.CheckIn.Submit)
			flows.DELETE("/:id", h.CheckIn.ExitFlow)
		}

		// 破冰卡组模块
		decks := v1.Group("/decks")
		{
			decks.GET("/:id", h.Deck.GetDeck)
			decks.POST("/:id/next", h.Deck.NextCard)
			decks.DELETE("/:id", h.Deck.ExitDeck)
		}

		// 标签页会话
		v1.POST("/session/clear", h.CheckIn.ClearSession)
	}

	return r
}
