// Package checkin 签到流程状态：定位解析、提交守卫与记录组装。
package checkin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/internal/geo"
	"github.com/cjenwere4/5590-check-in-app/internal/model"
)

// ── 页面文案 ──

const (
	StatusLocating  = "Locating"
	StatusResolving = "Resolving Address"
	StatusReady     = "Ready"

	SubmitLabelLocating   = "Detecting your location…"
	SubmitLabelResolving  = "Polishing your address…"
	SubmitLabelSubmitting = "Logging your check-in…"
	SubmitLabelReady      = "Complete Check-In"

	// WarningNotSynced 远端写入失败时的提示，签到本身仍然完成
	WarningNotSynced = "We saved your check-in locally but could not sync it. Please let the host know."
)

// ── 签到流程错误 ──

var (
	ErrNameRequired = errors.New("姓名不能为空")
	ErrFlowBusy     = errors.New("签到流程忙，请稍后再试")
	ErrFlowExited   = errors.New("签到流程已退出")
)

// Flow 一次签到页加载对应的流程。
// 会话标识在流程存续期间保持不变。
type Flow struct {
	ID        string
	TabID     string
	SessionID string
	CreatedAt time.Time

	resolver *geo.Resolver
	now      func() time.Time

	mu          sync.Mutex
	submitting  bool
	submitError string
	lastSeen    time.Time
	exited      bool
}

// NewFlow 创建流程并进入 Locating 状态（onEnter）
func NewFlow(ctx context.Context, id, tabID, sessionID string, geocoder geo.Geocoder, logger *zap.Logger) *Flow {
	now := time.Now()
	return &Flow{
		ID:        id,
		TabID:     tabID,
		SessionID: sessionID,
		CreatedAt: now,
		resolver: geo.NewResolver(ctx, geocoder, logger.With(
			zap.String("flow_id", id),
		)),
		now:      time.Now,
		lastSeen: now,
	}
}

// ReportPosition 接收浏览器上报的定位结果。
// 坐标解析在后台进行，本方法在切换到 LocatedResolving 后即返回。
func (f *Flow) ReportPosition(loc geo.Locator) error {
	f.Touch()
	return f.resolver.Start(loc)
}

// Resolved 地址解析结束时关闭
func (f *Flow) Resolved() <-chan struct{} { return f.resolver.Done() }

// View 流程对外展示状态
type View struct {
	ID          string
	Status      string
	Location    geo.Snapshot
	Submitting  bool
	Busy        bool
	SubmitLabel string
	SubmitError string
}

// View 返回当前展示状态
func (f *Flow) View() View {
	snap := f.resolver.Snapshot()

	f.mu.Lock()
	submitting := f.submitting
	submitError := f.submitError
	f.mu.Unlock()

	v := View{
		ID:          f.ID,
		Location:    snap,
		Submitting:  submitting,
		Busy:        snap.Locating() || snap.Resolving() || submitting,
		SubmitError: submitError,
	}

	switch {
	case snap.Locating():
		v.Status = StatusLocating
		v.SubmitLabel = SubmitLabelLocating
	case snap.Resolving():
		v.Status = StatusResolving
		v.SubmitLabel = SubmitLabelResolving
	default:
		v.Status = StatusReady
		v.SubmitLabel = SubmitLabelReady
		if submitting {
			v.SubmitLabel = SubmitLabelSubmitting
		}
	}
	return v
}

// Draft 通过守卫后的提交内容
type Draft struct {
	Name     string
	Location geo.Snapshot
}

// BeginSubmit 提交守卫：姓名去空白后非空且流程不忙。
// 通过后清除上一次的提示并进入 submitting，调用方必须以 EndSubmit 结束。
func (f *Flow) BeginSubmit(name string) (*Draft, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrNameRequired
	}

	snap := f.resolver.Snapshot()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastSeen = f.now()
	if f.exited {
		return nil, ErrFlowExited
	}
	if f.submitting || snap.Locating() || snap.Resolving() {
		return nil, ErrFlowBusy
	}
	f.submitting = true
	f.submitError = ""

	return &Draft{Name: trimmed, Location: snap}, nil
}

// EndSubmit 结束提交；warning 非空时作为页面提示保留
func (f *Flow) EndSubmit(warning string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	f.submitError = warning
}

// Touch 记录最近一次访问
func (f *Flow) Touch() {
	f.mu.Lock()
	f.lastSeen = f.now()
	f.mu.Unlock()
}

// IdleSince 最近一次访问时间
func (f *Flow) IdleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeen
}

// OnExit 取消尚未完成的定位解析，之后不再写入状态
func (f *Flow) OnExit() {
	f.mu.Lock()
	f.exited = true
	f.mu.Unlock()
	f.resolver.Close()
}

// ── 记录组装 ──

// BuildRecord 由提交内容组装远端签到记录
func BuildRecord(d *Draft, sessionID, eventLabel, userAgent string, now time.Time) *model.CheckIn {
	rec := &model.CheckIn{
		SessionID:      sessionID,
		EventLabel:     eventLabel,
		Name:           d.Name,
		Address:        d.Location.Label,
		CapturedAt:     now.UTC(),
		LocationSource: model.LocationSourceUnavailable,
	}
	if c := d.Location.Coordinates; c != nil {
		lat, lon := c.Latitude, c.Longitude
		rec.Latitude = &lat
		rec.Longitude = &lon
		rec.AccuracyM = c.Accuracy
		rec.LocationSource = model.LocationSourceBrowser
	}
	if d.Location.CapturedAt != nil {
		rec.CapturedAt = *d.Location.CapturedAt
	}
	if userAgent != "" {
		rec.DeviceUserAgent = &userAgent
	}
	return rec
}

// BuildAttendee 组装跨页面传递的来宾信息
func BuildAttendee(d *Draft, logged bool, now time.Time) *model.Attendee {
	a := &model.Attendee{
		Name:          d.Name,
		Location:      d.Location.Label,
		CapturedAt:    now.UTC(),
		CheckInLogged: logged,
	}
	if c := d.Location.Coordinates; c != nil {
		coords := *c
		a.Coordinates = &coords
	}
	if d.Location.CapturedAt != nil {
		a.CapturedAt = *d.Location.CapturedAt
	}
	return a
}
