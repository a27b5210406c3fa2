// Package session 保存标签页级别的来宾状态。
//
// 所有操作均为尽力而为：存储不可用或序列化失败只记录日志，不向调用方返回错误。
package session

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/internal/model"
	apperrors "github.com/cjenwere4/5590-check-in-app/pkg/errors"
)

// StorageKey 每个标签页唯一的存储键
const StorageKey = "checkInState"

// Store 标签页会话存储
type Store interface {
	// Save 覆盖写入当前标签页的来宾状态；state 为 nil 时忽略
	Save(ctx context.Context, tabID string, state *model.Attendee)
	// Load 读取来宾状态；不存在或存储不可用时返回 nil
	Load(ctx context.Context, tabID string) *model.Attendee
	// Clear 删除来宾状态
	Clear(ctx context.Context, tabID string)
}

// backend 底层键值存储
type backend interface {
	put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	get(ctx context.Context, key string) ([]byte, error)
	del(ctx context.Context, key string) error
	name() string
}

type store struct {
	backend backend
	ttl     time.Duration
	logger  *zap.Logger
}

func newStore(b backend, ttl time.Duration, logger *zap.Logger) *store {
	return &store{
		backend: b,
		ttl:     ttl,
		logger:  logger.With(zap.String("backend", b.name())),
	}
}

func key(tabID string) string {
	return "checkin:tab:" + tabID + ":" + StorageKey
}

func (s *store) Save(ctx context.Context, tabID string, state *model.Attendee) {
	if state == nil {
		return
	}
	if tabID == "" {
		s.logger.Warn("保存签到状态失败", zap.Error(apperrors.ErrStorageUnavailable))
		return
	}

	raw, err := json.Marshal(state)
	if err != nil {
		s.logger.Warn("序列化签到状态失败", zap.String("tab_id", tabID), zap.Error(err))
		return
	}

	if err := s.backend.put(ctx, key(tabID), raw, s.ttl); err != nil {
		s.logger.Warn("保存签到状态失败", zap.String("tab_id", tabID), zap.Error(err))
	}
}

func (s *store) Load(ctx context.Context, tabID string) *model.Attendee {
	if tabID == "" {
		return nil
	}

	raw, err := s.backend.get(ctx, key(tabID))
	if err != nil {
		s.logger.Warn("读取签到状态失败", zap.String("tab_id", tabID), zap.Error(err))
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var state model.Attendee
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("解析签到状态失败", zap.String("tab_id", tabID), zap.Error(err))
		return nil
	}
	return &state
}

func (s *store) Clear(ctx context.Context, tabID string) {
	if tabID == "" {
		return
	}
	if err := s.backend.del(ctx, key(tabID)); err != nil {
		s.logger.Warn("清除签到状态失败", zap.String("tab_id", tabID), zap.Error(err))
	}
}
