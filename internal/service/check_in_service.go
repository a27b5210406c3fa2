package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/checkin"
	"github.com/cjenwere4/5590-check-in-app/internal/dto"
	"github.com/cjenwere4/5590-check-in-app/internal/geo"
	"github.com/cjenwere4/5590-check-in-app/internal/remote"
	"github.com/cjenwere4/5590-check-in-app/internal/session"
	"github.com/cjenwere4/5590-check-in-app/pkg/jwt"
	"github.com/cjenwere4/5590-check-in-app/pkg/random"
)

// ── 签到模块业务错误 ──

var (
	ErrFlowNotFound = errors.New("签到流程不存在")
	ErrNameRequired = checkin.ErrNameRequired
	ErrFlowBusy     = checkin.ErrFlowBusy
)

// IcebreakersPath 签到完成后的跳转目标
const IcebreakersPath = "/icebreakers"

// TabQueryParam 跳转时携带标签页 ID 的查询参数，与中间件保持一致
const TabQueryParam = "tab"

// icebreakersURL 带上标签页 ID，使破冰页读取同一标签页的会话
func icebreakersURL(tabID string) string {
	if tabID == "" {
		return IcebreakersPath
	}
	return IcebreakersPath + "?" + url.Values{TabQueryParam: {tabID}}.Encode()
}

// SubmitResult 提交结果
type SubmitResult struct {
	Response *dto.SubmitCheckInResponse
	Handoff  string // 签名后的跳转 Token；签发失败时为空，破冰页退回读取会话存储
}

// CheckInService 签到流程业务接口
//
// 设计说明：
//   - 每次打开签到页创建一个流程（onEnter），页面关闭或空闲超时后退出（onExit）
//   - 定位由浏览器完成并上报，逆地理编码在服务端后台进行
//   - 远端写入失败不阻断提交，仅返回提示
type CheckInService interface {
	Enter(ctx context.Context, tabID string) *dto.FlowResponse
	Get(ctx context.Context, flowID string) (*dto.FlowResponse, error)
	ReportPosition(ctx context.Context, flowID string, req *dto.PositionReport) (*dto.FlowResponse, error)
	Submit(ctx context.Context, flowID, tabID, userAgent string, req *dto.SubmitCheckInRequest) (*SubmitResult, error)
	Exit(ctx context.Context, flowID string) error
	ClearSession(ctx context.Context, tabID string)
	Sweep(idle time.Duration) int
	Shutdown()
}

type checkInService struct {
	event    config.EventConfig
	flows    *registry[*checkin.Flow]
	geocoder geo.Geocoder
	remote   remote.Client
	sessions session.Store
	handoff  *jwt.Manager
	logger   *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// NewCheckInService 创建 CheckInService 实例；remoteClient 为 nil 表示不记录远端
func NewCheckInService(
	cfg *config.Config,
	geocoder geo.Geocoder,
	remoteClient remote.Client,
	sessions session.Store,
	handoff *jwt.Manager,
	logger *zap.Logger,
) CheckInService {
	ctx, cancel := context.WithCancel(context.Background())
	return &checkInService{
		event:    cfg.Event,
		flows:    newRegistry[*checkin.Flow](),
		geocoder: geocoder,
		remote:   remoteClient,
		sessions: sessions,
		handoff:  handoff,
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// ────────────────────── Enter ──────────────────────

func (s *checkInService) Enter(_ context.Context, tabID string) *dto.FlowResponse {
	// 流程生命周期独立于本次请求
	flow := checkin.NewFlow(s.baseCtx, uuid.NewString(), tabID, random.SessionID(), s.geocoder, s.logger)
	s.flows.put(flow.ID, flow)

	s.logger.Debug("签到流程创建",
		zap.String("flow_id", flow.ID),
		zap.String("session_id", flow.SessionID),
	)
	return toFlowResponse(flow.View())
}

// ────────────────────── Get ──────────────────────

func (s *checkInService) Get(_ context.Context, flowID string) (*dto.FlowResponse, error) {
	flow, ok := s.flows.get(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}
	flow.Touch()
	return toFlowResponse(flow.View()), nil
}

// ────────────────────── ReportPosition ──────────────────────

func (s *checkInService) ReportPosition(_ context.Context, flowID string, req *dto.PositionReport) (*dto.FlowResponse, error) {
	flow, ok := s.flows.get(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}

	if err := flow.ReportPosition(toLocator(req)); err != nil {
		if !errors.Is(err, geo.ErrAlreadyLocated) {
			return nil, err
		}
		// 重复上报（页面重试）按幂等处理
		s.logger.Debug("忽略重复定位上报", zap.String("flow_id", flowID))
	}
	return toFlowResponse(flow.View()), nil
}

// toLocator 将页面上报转换为定位结果。
// 既无错误码也无坐标的上报（如 error_code 为 0）按未知定位错误处理，流程随即可提交。
func toLocator(req *dto.PositionReport) geo.Locator {
	if !req.Supported {
		return geo.Reported{Supported: false}
	}
	if req.ErrorCode > 0 {
		return geo.Reported{Supported: true, ErrorCode: geo.ErrorCode(req.ErrorCode)}
	}
	if req.Latitude == nil || req.Longitude == nil {
		return geo.LocatorFunc(func(context.Context) (geo.Position, error) {
			return geo.Position{}, &geo.PositionError{Code: geo.ErrorCode(req.ErrorCode)}
		})
	}

	pos := geo.Position{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
	}
	if req.Timestamp > 0 {
		pos.Timestamp = time.UnixMilli(req.Timestamp)
	}
	return geo.Reported{Supported: true, Position: pos}
}

// ────────────────────── Submit ──────────────────────

func (s *checkInService) Submit(ctx context.Context, flowID, tabID, userAgent string, req *dto.SubmitCheckInRequest) (*SubmitResult, error) {
	flow, ok := s.flows.get(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}

	// 1. 提交守卫
	draft, err := flow.BeginSubmit(req.Name)
	if err != nil {
		if errors.Is(err, checkin.ErrFlowExited) {
			// 流程已被回收但仍在注册表中（退出竞争）
			return nil, ErrFlowNotFound
		}
		return nil, err
	}

	// 2. 远端写入（失败不阻断）
	now := s.now()
	logged := false
	warning := ""
	if s.remote != nil {
		rec := checkin.BuildRecord(draft, flow.SessionID, s.event.Label, userAgent, now)
		if err := s.remote.Insert(ctx, rec); err != nil {
			s.logger.Error("远端签到记录写入失败",
				zap.String("flow_id", flowID),
				zap.String("session_id", flow.SessionID),
				zap.String("driver", s.remote.Name()),
				zap.Error(err),
			)
			warning = checkin.WarningNotSynced
		} else {
			logged = true
		}
	}
	flow.EndSubmit(warning)

	// 3. 保存标签页会话
	attendee := checkin.BuildAttendee(draft, logged, now)
	s.sessions.Save(ctx, tabID, attendee)

	// 4. 签发跳转状态
	token, err := s.handoff.GenerateHandoff(flow.SessionID, tabID, attendee.Name, attendee.Location, logged)
	if err != nil {
		s.logger.Warn("签发跳转 Token 失败", zap.Error(err))
		token = ""
	}

	s.logger.Info("签到完成",
		zap.String("session_id", flow.SessionID),
		zap.Bool("check_in_logged", logged),
	)

	return &SubmitResult{
		Response: &dto.SubmitCheckInResponse{
			Redirect: icebreakersURL(tabID),
			Attendee: dto.AttendeeResponse{
				Name:          attendee.Name,
				Location:      attendee.Location,
				CheckInLogged: logged,
			},
			CheckInLogged: logged,
			Warning:       warning,
		},
		Handoff: token,
	}, nil
}

// ────────────────────── Exit / ClearSession / Sweep ──────────────────────

func (s *checkInService) Exit(_ context.Context, flowID string) error {
	if !s.flows.remove(flowID) {
		return ErrFlowNotFound
	}
	return nil
}

// ClearSession 清除标签页会话中的来宾信息
func (s *checkInService) ClearSession(ctx context.Context, tabID string) {
	s.sessions.Clear(ctx, tabID)
}

func (s *checkInService) Sweep(idle time.Duration) int {
	return s.flows.sweep(idle)
}

func (s *checkInService) Shutdown() {
	s.cancel()
	s.flows.closeAll()
}

// ────────────────────── 转换 ──────────────────────

func toFlowResponse(v checkin.View) *dto.FlowResponse {
	resp := &dto.FlowResponse{
		ID:               v.ID,
		Status:           v.Status,
		LocationState:    string(v.Location.State),
		Location:         v.Location.Label,
		Locating:         v.Location.Locating(),
		ResolvingAddress: v.Location.Resolving(),
		Submitting:       v.Submitting,
		Busy:             v.Busy,
		SubmitLabel:      v.SubmitLabel,
		SubmitError:      v.SubmitError,
	}
	if c := v.Location.Coordinates; c != nil {
		resp.Coordinates = &dto.CoordinatesResponse{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Accuracy:  c.Accuracy,
		}
	}
	if v.Location.CapturedAt != nil {
		resp.CapturedAt = v.Location.CapturedAt.Format(time.RFC3339Nano)
	}
	return resp
}
