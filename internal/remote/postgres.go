package remote

import (
	"context"
	"fmt"

	"github.com/cjenwere4/5590-check-in-app/internal/model"
	"github.com/cjenwere4/5590-check-in-app/internal/repository"
)

// PostgresClient 通过 GORM 仓储直接写入 check_ins
type PostgresClient struct {
	repo repository.CheckInRepository
}

// NewPostgresClient 创建数据库写入客户端
func NewPostgresClient(repo repository.CheckInRepository) *PostgresClient {
	return &PostgresClient{repo: repo}
}

// Insert 写入一条签到记录
func (c *PostgresClient) Insert(ctx context.Context, rec *model.CheckIn) error {
	if err := c.repo.Create(ctx, rec); err != nil {
		return fmt.Errorf("写入签到记录失败: %w", err)
	}
	return nil
}

// Name 驱动名
func (c *PostgresClient) Name() string { return "postgres" }
