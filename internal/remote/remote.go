// Package remote 将签到记录写入远端存储。
//
// 写入失败会返回给调用方，但不阻断签到流程；不做重试与批量。
package remote

import (
	"context"

	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/model"
	"github.com/cjenwere4/5590-check-in-app/internal/repository"
)

// Client 远端签到记录写入
type Client interface {
	Insert(ctx context.Context, rec *model.CheckIn) error
	Name() string
}

// GetClient 按配置构造远端客户端；未配置时返回 nil，表示不记录远端
func GetClient(cfg *config.RemoteConfig, repo *repository.Repository, logger *zap.Logger) Client {
	if !cfg.Enabled() {
		logger.Warn("未配置远端签到记录，签到将仅保存在本地会话",
			zap.String("driver", cfg.Driver),
		)
		return nil
	}

	switch cfg.Driver {
	case config.RemoteDriverPostgres:
		if repo == nil || repo.CheckIn == nil {
			logger.Warn("remote.driver=postgres 但数据库未就绪，远端记录已禁用")
			return nil
		}
		return NewPostgresClient(repo.CheckIn)
	case config.RemoteDriverREST:
		return NewRESTClient(cfg)
	default:
		return nil
	}
}
