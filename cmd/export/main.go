package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/repository"
	"github.com/cjenwere4/5590-check-in-app/internal/service"
	"github.com/cjenwere4/5590-check-in-app/pkg/database"
	apperrors "github.com/cjenwere4/5590-check-in-app/pkg/errors"
	applogger "github.com/cjenwere4/5590-check-in-app/pkg/logger"
)

// 导出签到记录为 Excel，供活动结束后运维使用
//
//	export -event 5590-check-in -out ./exports
func main() {
	var (
		configPath = flag.String("config", os.Getenv("CHECKIN_CONFIG"), "配置文件路径")
		event      = flag.String("event", "", "活动标识；为空时使用配置中的 event.label，传 * 导出全部")
		outDir     = flag.String("out", ".", "输出目录")
		timeout    = flag.Duration("timeout", 30*time.Second, "查询超时")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *event, *outDir, *timeout); err != nil {
		logger.Error("导出失败", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, event, outDir string, timeout time.Duration) error {
	if cfg.Remote.Driver != config.RemoteDriverPostgres {
		return fmt.Errorf("remote.driver=%q: %w", cfg.Remote.Driver, apperrors.ErrRemoteDisabled)
	}

	switch event {
	case "":
		event = cfg.Event.Label
	case "*":
		event = ""
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	if sqlDB, _ := db.DB(); sqlDB != nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	exportSvc := service.NewExportService(repository.NewRepository(db), logger)
	buf, filename, err := exportSvc.ExportCheckIns(ctx, event)
	if err != nil {
		if errors.Is(err, service.ErrExportNoRecords) {
			logger.Warn("没有可导出的签到记录", zap.String("event", event))
			return nil
		}
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}

	logger.Info("导出完成", zap.String("file", path), zap.Int("bytes", buf.Len()))
	return nil
}
