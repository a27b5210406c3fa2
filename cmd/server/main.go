package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/api/handler"
	"github.com/cjenwere4/5590-check-in-app/internal/api/router"
	"github.com/cjenwere4/5590-check-in-app/internal/geo"
	"github.com/cjenwere4/5590-check-in-app/internal/remote"
	"github.com/cjenwere4/5590-check-in-app/internal/repository"
	"github.com/cjenwere4/5590-check-in-app/internal/service"
	"github.com/cjenwere4/5590-check-in-app/internal/session"
	"github.com/cjenwere4/5590-check-in-app/internal/web"
	"github.com/cjenwere4/5590-check-in-app/pkg/database"
	"github.com/cjenwere4/5590-check-in-app/pkg/jwt"
	applogger "github.com/cjenwere4/5590-check-in-app/pkg/logger"
	"github.com/cjenwere4/5590-check-in-app/pkg/redis"
)

// connectCheckInStore 连接 PostgreSQL 并执行迁移。
// 数据库不可用不阻断启动：返回 nil，远端记录随之禁用，与 Redis 降级一致。
func connectCheckInStore(cfg *config.Config, logger *zap.Logger) (*gorm.DB, *repository.Repository) {
	if cfg.Remote.Driver != config.RemoteDriverPostgres {
		return nil, nil
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Warn("数据库连接失败，远端签到记录已禁用", zap.Error(err))
		return nil, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("获取底层 sql.DB 失败，远端签到记录已禁用", zap.Error(err))
		return nil, nil
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Warn("数据库迁移失败，远端签到记录已禁用", zap.Error(err))
		_ = sqlDB.Close()
		return nil, nil
	}

	return db, repository.NewRepository(db)
}

func main() {
	// 1. 加载配置（.env 可选，仅用于本地开发）
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CHECKIN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("event", cfg.Event.Label),
		zap.String("remote_driver", cfg.Remote.Driver),
	)

	// 3. 连接数据库（仅 remote.driver=postgres 时需要；失败时禁用远端记录，签到照常进行）
	db, repo := connectCheckInStore(cfg, logger)

	// 4. 连接 Redis（可选：未配置或连接失败时会话存储降级为进程内存）
	var (
		rdb      *redis.Client
		sessions session.Store
		memStore *session.MemoryStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，会话存储降级为进程内存，提交限流不可用", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.Session.TTL, logger)
	} else {
		memStore = session.NewMemoryStore(cfg.Session.TTL, logger)
		sessions = memStore
	}

	// 5. 远端记录、逆地理编码与跳转签名
	remoteClient := remote.GetClient(&cfg.Remote, repo, logger)
	geocoder := geo.NewNominatim(&cfg.Geocoder)
	jwtMgr := jwt.NewManager(&cfg.Handoff)

	// 6. 依赖注入: Service → Handler
	svc := service.NewService(cfg, geocoder, remoteClient, sessions, jwtMgr, logger)
	h := handler.NewHandler(cfg, svc)

	// 7. 初始化路由
	tmpl, err := web.Templates()
	if err != nil {
		logger.Fatal("页面模板解析失败", zap.Error(err))
	}
	engine := router.Setup(cfg, h, tmpl, rdb, logger)

	// 8. 后台回收：关闭标签页后遗留的签到流程、卡组与过期会话
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.Session.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				flows, decks := svc.Sweep(cfg.Session.FlowIdleTTL)
				expired := 0
				if memStore != nil {
					expired = memStore.Sweep()
				}
				if flows+decks+expired > 0 {
					logger.Info("空闲回收完成",
						zap.Int("flows", flows),
						zap.Int("decks", decks),
						zap.Int("sessions", expired),
					)
				}
			}
		}
	}()

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 退出全部签到流程与卡组，丢弃未完成的逆地理编码结果
	stopSweep()
	svc.Shutdown()

	// 关闭数据库连接
	if db != nil {
		if closeDB, _ := db.DB(); closeDB != nil {
			closeDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
