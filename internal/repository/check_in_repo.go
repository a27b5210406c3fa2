package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cjenwere4/5590-check-in-app/internal/model"
)

// CheckInRepository 签到记录数据访问接口
// 记录只追加：不提供更新与删除
type CheckInRepository interface {
	Create(ctx context.Context, rec *model.CheckIn) error
	ListByEvent(ctx context.Context, eventLabel string) ([]model.CheckIn, error)
}

type checkInRepo struct {
	db *gorm.DB
}

// NewCheckInRepo 创建 CheckInRepository 实例
func NewCheckInRepo(db *gorm.DB) CheckInRepository {
	return &checkInRepo{db: db}
}

func (r *checkInRepo) Create(ctx context.Context, rec *model.CheckIn) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *checkInRepo) ListByEvent(ctx context.Context, eventLabel string) ([]model.CheckIn, error) {
	var records []model.CheckIn
	db := r.db.WithContext(ctx)
	if eventLabel != "" {
		db = db.Where("event_label = ?", eventLabel)
	}
	err := db.Order("captured_at ASC").Find(&records).Error
	return records, err
}
