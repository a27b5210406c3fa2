package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/internal/model"
)

// State 定位状态机
//
//	Locating -> LocatedResolving -> LocatedResolved | LocatedUnresolved
//	Locating -> LocationDenied | LocationUnavailable | LocationTimeout | LocationUnknown | LocationUnsupported
type State string

const (
	StateLocating    State = "locating"
	StateResolving   State = "located_resolving"
	StateResolved    State = "located_resolved"
	StateUnresolved  State = "located_unresolved"
	StateDenied      State = "location_denied"
	StateUnavailable State = "location_unavailable"
	StateTimeout     State = "location_timeout"
	StateUnknown     State = "location_unknown_error"
	StateUnsupported State = "location_unsupported"
)

// ErrAlreadyLocated 每个流程只请求一次定位
var ErrAlreadyLocated = errors.New("定位已请求")

// Snapshot 状态快照
type Snapshot struct {
	State       State
	Label       string
	Coordinates *model.Coordinates
	CapturedAt  *time.Time
}

// Locating 是否仍在等待定位结果
func (s Snapshot) Locating() bool { return s.State == StateLocating }

// Resolving 是否正在解析地址
func (s Snapshot) Resolving() bool { return s.State == StateResolving }

// Resolver 单个签到流程的定位解析器。
// 所在流程退出（ctx 取消）后不再写入任何状态。
type Resolver struct {
	geocoder Geocoder
	logger   *zap.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
	snap    Snapshot
}

// NewResolver 创建处于 Locating 状态的解析器
func NewResolver(ctx context.Context, geocoder Geocoder, logger *zap.Logger) *Resolver {
	ctx, cancel := context.WithCancel(ctx)
	return &Resolver{
		geocoder: geocoder,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		snap: Snapshot{
			State: StateLocating,
			Label: LabelDetecting,
		},
	}
}

// Snapshot 返回当前状态
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Done 解析结束（成功、降级或被取消）时关闭
func (r *Resolver) Done() <-chan struct{} { return r.done }

// Close 取消解析，之后的异步结果全部丢弃
func (r *Resolver) Close() { r.cancel() }

// Start 请求一次定位。定位结果在调用方 goroutine 中等待，
// 取得坐标后立即切换到 LocatedResolving，并在后台发起逆地理编码。
func (r *Resolver) Start(loc Locator) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyLocated
	}
	r.started = true
	r.mu.Unlock()

	pos, err := loc.Locate(r.ctx)

	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		close(r.done)
		return nil
	}
	if err != nil {
		r.snap = failedSnapshot(err)
		r.mu.Unlock()
		close(r.done)
		return nil
	}

	capturedAt := pos.Timestamp
	if capturedAt.IsZero() {
		capturedAt = r.now()
	}
	capturedAt = capturedAt.UTC()

	fallback := FallbackLabel(pos.Latitude, pos.Longitude)
	r.snap = Snapshot{
		State: StateResolving,
		Label: fallback + " (resolving address…)",
		Coordinates: &model.Coordinates{
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Accuracy:  pos.Accuracy,
		},
		CapturedAt: &capturedAt,
	}
	r.mu.Unlock()

	go r.resolveAddress(pos.Latitude, pos.Longitude, fallback)
	return nil
}

func (r *Resolver) resolveAddress(latitude, longitude float64, fallback string) {
	defer close(r.done)

	place, err := r.geocoder.Reverse(r.ctx, latitude, longitude)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return
	}

	if err != nil {
		r.logger.Info("逆地理编码失败，使用坐标标签", zap.Error(err))
		r.snap.State = StateUnresolved
		r.snap.Label = fallback + " (could not fetch address)"
		return
	}

	var label string
	if place != nil {
		label = FormatAddress(place.Address)
		if label == "" {
			label = place.DisplayName
		}
	}
	if label == "" {
		r.snap.State = StateUnresolved
		r.snap.Label = fallback + " (address unavailable)"
		return
	}

	r.snap.State = StateResolved
	r.snap.Label = label
}

func failedSnapshot(err error) Snapshot {
	if errors.Is(err, ErrUnsupported) {
		return Snapshot{State: StateUnsupported, Label: MsgUnsupported}
	}

	var pe *PositionError
	if !errors.As(err, &pe) {
		return Snapshot{State: StateUnknown, Label: MsgUnknown}
	}

	snap := Snapshot{Label: pe.Message()}
	switch pe.Code {
	case CodePermissionDenied:
		snap.State = StateDenied
	case CodePositionUnavailable:
		snap.State = StateUnavailable
	case CodeTimeout:
		snap.State = StateTimeout
	default:
		snap.State = StateUnknown
	}
	return snap
}
