package session

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/internal/model"
	"github.com/cjenwere4/5590-check-in-app/pkg/redis"
)

func sampleAttendee() *model.Attendee {
	acc := 12.5
	return &model.Attendee{
		Name:     "Ava",
		Location: "12 Main St, Springfield, IL 62704, USA",
		Coordinates: &model.Coordinates{
			Latitude:  39.7817,
			Longitude: -89.6501,
			Accuracy:  &acc,
		},
		CapturedAt:    time.Date(2026, 10, 16, 18, 30, 0, 0, time.UTC),
		CheckInLogged: true,
	}
}

func assertAttendeeEqual(t *testing.T, got, want *model.Attendee) {
	t.Helper()
	if got == nil {
		t.Fatal("期望读取到签到状态，实际为 nil")
	}
	if got.Name != want.Name || got.Location != want.Location || got.CheckInLogged != want.CheckInLogged {
		t.Errorf("基础字段不一致: got=%+v want=%+v", got, want)
	}
	if !got.CapturedAt.Equal(want.CapturedAt) {
		t.Errorf("CapturedAt 不一致: got=%v want=%v", got.CapturedAt, want.CapturedAt)
	}
	if (got.Coordinates == nil) != (want.Coordinates == nil) {
		t.Fatalf("Coordinates 是否为空不一致")
	}
	if want.Coordinates != nil {
		if got.Coordinates.Latitude != want.Coordinates.Latitude ||
			got.Coordinates.Longitude != want.Coordinates.Longitude ||
			*got.Coordinates.Accuracy != *want.Coordinates.Accuracy {
			t.Errorf("Coordinates 不一致: got=%+v want=%+v", got.Coordinates, want.Coordinates)
		}
	}
}

// ── MemoryStore ──

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	want := sampleAttendee()
	s.Save(ctx, "tab-1", want)

	assertAttendeeEqual(t, s.Load(ctx, "tab-1"), want)
}

func TestMemoryStore_RoundTripWithoutCoordinates(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	want := &model.Attendee{Name: "Guest", Location: "Permission denied. Enable location access to proceed."}
	s.Save(ctx, "tab-1", want)

	assertAttendeeEqual(t, s.Load(ctx, "tab-1"), want)
}

func TestMemoryStore_SaveOverwrites(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	s.Save(ctx, "tab-1", &model.Attendee{Name: "first"})
	s.Save(ctx, "tab-1", &model.Attendee{Name: "second"})

	got := s.Load(ctx, "tab-1")
	if got == nil || got.Name != "second" {
		t.Errorf("期望覆盖为 second，实际=%+v", got)
	}
}

func TestMemoryStore_TabsAreIsolated(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	s.Save(ctx, "tab-1", &model.Attendee{Name: "Ava"})
	if got := s.Load(ctx, "tab-2"); got != nil {
		t.Errorf("其他标签页不应读取到状态，实际=%+v", got)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	s.Save(ctx, "tab-1", sampleAttendee())
	s.Clear(ctx, "tab-1")

	if got := s.Load(ctx, "tab-1"); got != nil {
		t.Errorf("Clear 后应返回 nil，实际=%+v", got)
	}
}

func TestMemoryStore_NilStateIgnored(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	s.Save(ctx, "tab-1", sampleAttendee())
	s.Save(ctx, "tab-1", nil)

	if got := s.Load(ctx, "tab-1"); got == nil {
		t.Error("保存 nil 不应覆盖已有状态")
	}
}

func TestMemoryStore_EmptyTabID(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	s.Save(ctx, "", sampleAttendee())
	if got := s.Load(ctx, ""); got != nil {
		t.Errorf("空标签页标识应视为存储不可用，实际=%+v", got)
	}
	s.Clear(ctx, "")
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute, zap.NewNop())
	ctx := context.Background()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s.backend.now = func() time.Time { return now }

	s.Save(ctx, "tab-1", sampleAttendee())
	s.Save(ctx, "tab-2", sampleAttendee())

	now = now.Add(2 * time.Minute)
	if got := s.Load(ctx, "tab-1"); got != nil {
		t.Errorf("过期后应返回 nil，实际=%+v", got)
	}
	if n := s.Sweep(); n != 1 {
		t.Errorf("期望清理 1 条过期记录，实际=%d", n)
	}
}

func TestMemoryStore_CorruptPayload(t *testing.T) {
	s := NewMemoryStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	_ = s.backend.put(ctx, key("tab-1"), []byte("{not json"), 0)
	if got := s.Load(ctx, "tab-1"); got != nil {
		t.Errorf("损坏的数据应返回 nil，实际=%+v", got)
	}
}

// ── RedisStore（存储不可用） ──

func TestRedisStore_UnavailableIsNoop(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	s := NewRedisStore(redis.Wrap(rdb, zap.NewNop()), time.Hour, zap.NewNop())
	ctx := context.Background()

	// 不应 panic，也不应返回错误
	s.Save(ctx, "tab-1", sampleAttendee())
	if got := s.Load(ctx, "tab-1"); got != nil {
		t.Errorf("存储不可用时 Load 应返回 nil，实际=%+v", got)
	}
	s.Clear(ctx, "tab-1")
}
