package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/dto"
	"github.com/cjenwere4/5590-check-in-app/internal/geo"
	"github.com/cjenwere4/5590-check-in-app/internal/model"
	"github.com/cjenwere4/5590-check-in-app/internal/remote"
	"github.com/cjenwere4/5590-check-in-app/internal/session"
	"github.com/cjenwere4/5590-check-in-app/pkg/jwt"
)

// ── 测试辅助 ──

const testTab = "tab-1"

func testConfig() *config.Config {
	return &config.Config{
		Handoff: config.HandoffConfig{Secret: "test-handoff-secret-0123", TTL: 5 * time.Minute},
		Deck:    config.DeckConfig{SettleDelay: 0},
		Event:   config.EventConfig{Label: "5590-check-in", UploadURL: "https://app.kululu.com/upload/w9p97x"},
	}
}

var springfieldPlace = &geo.Place{Address: &geo.Address{
	HouseNumber: "12", Road: "Main St", City: "Springfield",
	State: "IL", Postcode: "62704", Country: "USA",
}}

type checkInFixture struct {
	svc      CheckInService
	sessions *session.MemoryStore
	jwtMgr   *jwt.Manager
}

func setupTestCheckInService(t *testing.T, client remote.Client, geocoder geo.Geocoder) *checkInFixture {
	t.Helper()
	cfg := testConfig()
	sessions := session.NewMemoryStore(time.Hour, zap.NewNop())
	jwtMgr := jwt.NewManager(&cfg.Handoff)
	svc := NewCheckInService(cfg, geocoder, client, sessions, jwtMgr, zap.NewNop())
	t.Cleanup(svc.Shutdown)
	return &checkInFixture{svc: svc, sessions: sessions, jwtMgr: jwtMgr}
}

func f64(v float64) *float64 { return &v }

func locatedReport() *dto.PositionReport {
	return &dto.PositionReport{
		Supported: true,
		Latitude:  f64(39.78172),
		Longitude: f64(-89.65015),
		Accuracy:  f64(25),
		Timestamp: time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC).UnixMilli(),
	}
}

// waitReady 轮询直到地址解析结束
func waitReady(t *testing.T, svc CheckInService, flowID string) *dto.FlowResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := svc.Get(context.Background(), flowID)
		if err != nil {
			t.Fatalf("Get 返回错误: %v", err)
		}
		if !resp.Busy {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("流程未就绪: %+v", resp)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ── Enter / Get ──

func TestCheckInService_Enter(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})

	resp := fx.svc.Enter(context.Background(), testTab)
	if resp.ID == "" {
		t.Fatal("流程 ID 为空")
	}
	if resp.Status != "Locating" || resp.Location != geo.LabelDetecting || !resp.Locating || !resp.Busy {
		t.Errorf("初始状态错误: %+v", resp)
	}
	if resp.SubmitLabel != "Detecting your location…" {
		t.Errorf("按钮文案错误: %q", resp.SubmitLabel)
	}
}

func TestCheckInService_GetNotFound(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	if _, err := fx.svc.Get(context.Background(), "missing"); !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("期望 ErrFlowNotFound，实际 %v", err)
	}
}

// ── ReportPosition ──

func TestCheckInService_ReportPosition(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{place: springfieldPlace})
	flow := fx.svc.Enter(context.Background(), testTab)

	if _, err := fx.svc.ReportPosition(context.Background(), flow.ID, locatedReport()); err != nil {
		t.Fatalf("ReportPosition 返回错误: %v", err)
	}
	resp := waitReady(t, fx.svc, flow.ID)

	if resp.Status != "Ready" || resp.LocationState != string(geo.StateResolved) {
		t.Errorf("状态错误: %+v", resp)
	}
	if resp.Location != "12 Main St, Springfield, IL 62704, USA" {
		t.Errorf("地址错误: %q", resp.Location)
	}
	if resp.Coordinates == nil || resp.Coordinates.Latitude != 39.78172 {
		t.Errorf("坐标错误: %+v", resp.Coordinates)
	}
	if resp.CapturedAt != "2024-05-01T18:30:00Z" {
		t.Errorf("采集时间错误: %q", resp.CapturedAt)
	}

	// 重复上报按幂等处理
	if _, err := fx.svc.ReportPosition(context.Background(), flow.ID, locatedReport()); err != nil {
		t.Errorf("重复上报不应报错: %v", err)
	}
}

func TestCheckInService_ReportPositionErrors(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	flow := fx.svc.Enter(context.Background(), testTab)

	if _, err := fx.svc.ReportPosition(context.Background(), "missing", locatedReport()); !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("期望 ErrFlowNotFound，实际 %v", err)
	}
}

func TestCheckInService_ReportPosition_NoCoordinates(t *testing.T) {
	for _, report := range []*dto.PositionReport{
		{Supported: true},
		{Supported: true, ErrorCode: 0},
		{Supported: true, ErrorCode: -1},
		{Supported: true, Latitude: f64(39.78172)},
	} {
		fx := setupTestCheckInService(t, &mockRemote{}, &mockGeocoder{place: springfieldPlace})
		ctx := context.Background()
		flow := fx.svc.Enter(ctx, testTab)

		resp, err := fx.svc.ReportPosition(ctx, flow.ID, report)
		if err != nil {
			t.Fatalf("缺少坐标的上报不应报错: %v", err)
		}
		if resp.LocationState != string(geo.StateUnknown) || resp.Location != geo.MsgUnknown {
			t.Errorf("期望未知定位错误，实际 %+v", resp)
		}
		if resp.Busy || resp.Locating || resp.Coordinates != nil {
			t.Errorf("流程应结束定位: %+v", resp)
		}

		result, err := fx.svc.Submit(ctx, flow.ID, testTab, "", &dto.SubmitCheckInRequest{Name: "Ava"})
		if err != nil {
			t.Fatalf("未知定位错误后应可提交: %v", err)
		}
		if result.Response.Attendee.Location != geo.MsgUnknown {
			t.Errorf("地址应为未知错误文案: %q", result.Response.Attendee.Location)
		}
	}
}

func TestCheckInService_PermissionDenied(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	flow := fx.svc.Enter(context.Background(), testTab)

	resp, err := fx.svc.ReportPosition(context.Background(), flow.ID, &dto.PositionReport{Supported: true, ErrorCode: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Location != "Permission denied. Enable location access to proceed." || resp.Coordinates != nil {
		t.Errorf("拒绝授权状态错误: %+v", resp)
	}
	if resp.Busy || resp.Status != "Ready" {
		t.Errorf("定位失败后应可提交: %+v", resp)
	}
}

func TestCheckInService_Unsupported(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	flow := fx.svc.Enter(context.Background(), testTab)

	resp, _ := fx.svc.ReportPosition(context.Background(), flow.ID, &dto.PositionReport{Supported: false})
	if resp.Location != "Location services not supported in this browser" {
		t.Errorf("不支持定位文案错误: %q", resp.Location)
	}
}

// ── Submit ──

func TestCheckInService_Submit_Logged(t *testing.T) {
	client := &mockRemote{}
	fx := setupTestCheckInService(t, client, &mockGeocoder{place: springfieldPlace})
	ctx := context.Background()

	flow := fx.svc.Enter(ctx, testTab)
	_, _ = fx.svc.ReportPosition(ctx, flow.ID, locatedReport())
	waitReady(t, fx.svc, flow.ID)

	result, err := fx.svc.Submit(ctx, flow.ID, testTab, "Mozilla/5.0", &dto.SubmitCheckInRequest{Name: "Ava"})
	if err != nil {
		t.Fatalf("Submit 返回错误: %v", err)
	}

	resp := result.Response
	if resp.Redirect != "/icebreakers?tab=tab-1" {
		t.Errorf("跳转地址错误: %q", resp.Redirect)
	}
	want := dto.AttendeeResponse{Name: "Ava", Location: "12 Main St, Springfield, IL 62704, USA", CheckInLogged: true}
	if resp.Attendee != want || !resp.CheckInLogged || resp.Warning != "" {
		t.Errorf("提交结果错误: %+v", resp)
	}

	// 远端记录
	if len(client.inserted) != 1 {
		t.Fatalf("期望写入 1 条记录，实际 %d", len(client.inserted))
	}
	rec := client.inserted[0]
	if rec.Name != "Ava" || rec.EventLabel != "5590-check-in" || rec.LocationSource != model.LocationSourceBrowser {
		t.Errorf("记录字段错误: %+v", rec)
	}
	if rec.SessionID == "" || rec.DeviceUserAgent == nil || *rec.DeviceUserAgent != "Mozilla/5.0" {
		t.Errorf("记录会话或 UA 错误: %+v", rec)
	}

	// 标签页会话
	stored := fx.sessions.Load(ctx, testTab)
	if stored == nil || stored.Name != "Ava" || !stored.CheckInLogged || stored.Coordinates == nil {
		t.Errorf("会话存储错误: %+v", stored)
	}

	// 跳转 Token
	claims, err := fx.jwtMgr.ParseHandoff(result.Handoff)
	if err != nil {
		t.Fatalf("跳转 Token 无效: %v", err)
	}
	if claims.Name != "Ava" || claims.Location != want.Location || !claims.CheckInLogged || claims.Subject != rec.SessionID || claims.Tab != testTab {
		t.Errorf("跳转 Token 内容错误: %+v", claims)
	}
}

func TestCheckInService_Submit_InsertFails(t *testing.T) {
	client := &mockRemote{err: errors.New("HTTP 401")}
	fx := setupTestCheckInService(t, client, &mockGeocoder{place: springfieldPlace})
	ctx := context.Background()

	flow := fx.svc.Enter(ctx, testTab)
	_, _ = fx.svc.ReportPosition(ctx, flow.ID, locatedReport())
	waitReady(t, fx.svc, flow.ID)

	result, err := fx.svc.Submit(ctx, flow.ID, testTab, "", &dto.SubmitCheckInRequest{Name: "Ava"})
	if err != nil {
		t.Fatalf("写入失败不应阻断提交: %v", err)
	}
	resp := result.Response
	if resp.Redirect != "/icebreakers?tab=tab-1" || resp.CheckInLogged || resp.Attendee.CheckInLogged {
		t.Errorf("提交结果错误: %+v", resp)
	}
	if resp.Warning != "We saved your check-in locally but could not sync it. Please let the host know." {
		t.Errorf("提示文案错误: %q", resp.Warning)
	}

	view, _ := fx.svc.Get(ctx, flow.ID)
	if view.SubmitError != resp.Warning {
		t.Errorf("流程应保留提示: %+v", view)
	}
	if stored := fx.sessions.Load(ctx, testTab); stored == nil || stored.CheckInLogged {
		t.Errorf("会话应记录未同步: %+v", stored)
	}
}

func TestCheckInService_Submit_RemoteDisabled(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{place: springfieldPlace})
	ctx := context.Background()

	flow := fx.svc.Enter(ctx, testTab)
	_, _ = fx.svc.ReportPosition(ctx, flow.ID, &dto.PositionReport{Supported: true, ErrorCode: 3})

	result, err := fx.svc.Submit(ctx, flow.ID, testTab, "", &dto.SubmitCheckInRequest{Name: "Ava"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Response.CheckInLogged || result.Response.Warning != "" {
		t.Errorf("未配置远端时不应提示: %+v", result.Response)
	}
	if result.Response.Attendee.Location != "Timed out while retrieving location." {
		t.Errorf("地址应为定位失败文案: %q", result.Response.Attendee.Location)
	}
}

func TestCheckInService_Submit_Guards(t *testing.T) {
	fx := setupTestCheckInService(t, &mockRemote{}, &mockGeocoder{place: springfieldPlace})
	ctx := context.Background()
	flow := fx.svc.Enter(ctx, testTab)

	if _, err := fx.svc.Submit(ctx, "missing", testTab, "", &dto.SubmitCheckInRequest{Name: "Ava"}); !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("期望 ErrFlowNotFound，实际 %v", err)
	}
	if _, err := fx.svc.Submit(ctx, flow.ID, testTab, "", &dto.SubmitCheckInRequest{Name: "Ava"}); !errors.Is(err, ErrFlowBusy) {
		t.Errorf("定位中提交期望 ErrFlowBusy，实际 %v", err)
	}

	_, _ = fx.svc.ReportPosition(ctx, flow.ID, locatedReport())
	waitReady(t, fx.svc, flow.ID)

	if _, err := fx.svc.Submit(ctx, flow.ID, testTab, "", &dto.SubmitCheckInRequest{Name: "  "}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("期望 ErrNameRequired，实际 %v", err)
	}
}

func TestCheckInService_Submit_AfterExit(t *testing.T) {
	fx := setupTestCheckInService(t, &mockRemote{}, &mockGeocoder{place: springfieldPlace})
	ctx := context.Background()

	flow := fx.svc.Enter(ctx, testTab)
	_, _ = fx.svc.ReportPosition(ctx, flow.ID, locatedReport())
	waitReady(t, fx.svc, flow.ID)

	// 回收与提交竞争：流程已退出但仍可从注册表取到
	svc := fx.svc.(*checkInService)
	f, ok := svc.flows.get(flow.ID)
	if !ok {
		t.Fatal("流程应存在")
	}
	f.OnExit()

	_, err := fx.svc.Submit(ctx, flow.ID, testTab, "", &dto.SubmitCheckInRequest{Name: "Ava"})
	if !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("已退出流程期望 ErrFlowNotFound，实际 %v", err)
	}
}

func TestCheckInService_LoggerName(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := testConfig()
	svc := NewCheckInService(cfg, &mockGeocoder{}, nil,
		session.NewMemoryStore(time.Hour, zap.NewNop()), jwt.NewManager(&cfg.Handoff),
		zap.New(core).Named("check-in"))
	t.Cleanup(svc.Shutdown)

	svc.Enter(context.Background(), testTab)

	entries := logs.All()
	if len(entries) == 0 {
		t.Fatal("期望至少一条日志")
	}
	for _, e := range entries {
		if e.LoggerName != "check-in" {
			t.Errorf("日志名称重复嵌套: %q", e.LoggerName)
		}
	}
}

// ── Exit / Sweep ──

func TestCheckInService_Exit(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	flow := fx.svc.Enter(context.Background(), testTab)

	if err := fx.svc.Exit(context.Background(), flow.ID); err != nil {
		t.Fatalf("Exit 返回错误: %v", err)
	}
	if _, err := fx.svc.Get(context.Background(), flow.ID); !errors.Is(err, ErrFlowNotFound) {
		t.Error("退出后流程应被移除")
	}
	if err := fx.svc.Exit(context.Background(), flow.ID); !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("重复退出期望 ErrFlowNotFound，实际 %v", err)
	}
}

func TestCheckInService_Sweep(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	fx.svc.Enter(context.Background(), testTab)
	fx.svc.Enter(context.Background(), testTab)

	if n := fx.svc.Sweep(time.Hour); n != 0 {
		t.Errorf("未超时的流程不应回收，实际回收 %d", n)
	}
	if n := fx.svc.Sweep(-time.Second); n != 2 {
		t.Errorf("期望回收 2 个流程，实际 %d", n)
	}
}

func TestCheckInService_ClearSession(t *testing.T) {
	fx := setupTestCheckInService(t, nil, &mockGeocoder{})
	ctx := context.Background()
	fx.sessions.Save(ctx, testTab, &model.Attendee{Name: "Ava"})

	fx.svc.ClearSession(ctx, testTab)
	if got := fx.sessions.Load(ctx, testTab); got != nil {
		t.Errorf("清除后应为 nil，实际 %+v", got)
	}
}
