package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/deck"
	"github.com/cjenwere4/5590-check-in-app/internal/dto"
	"github.com/cjenwere4/5590-check-in-app/internal/prompt"
	"github.com/cjenwere4/5590-check-in-app/internal/session"
	"github.com/cjenwere4/5590-check-in-app/pkg/jwt"
	"github.com/cjenwere4/5590-check-in-app/pkg/random"
)

// ── 破冰模块业务错误 ──

var (
	ErrDeckNotFound = errors.New("卡组不存在")
	ErrNoAttendee   = errors.New("未找到签到信息")
)

// GuestName 来宾姓名缺失时的显示名
const GuestName = "Guest"

// DeckEntry 进入破冰页所需的全部数据
type DeckEntry struct {
	Attendee  dto.AttendeeResponse
	Deck      *dto.DeckResponse
	UploadURL string
	FromToken bool // 来宾信息来自跳转 Token（否则来自会话存储）
}

// DeckService 破冰卡组业务接口
//
// 设计说明：
//   - 来宾信息优先读取跳转 Token，其次读取标签页会话，均无时返回 ErrNoAttendee（页面重定向到签到页）
//   - 每次打开页面洗一副新牌，页面关闭或空闲超时后释放
type DeckService interface {
	Enter(ctx context.Context, tabID, handoffToken string) (*DeckEntry, error)
	Get(ctx context.Context, deckID string) (*dto.DeckResponse, error)
	Next(ctx context.Context, deckID string) (*dto.NextCardResponse, error)
	Exit(ctx context.Context, deckID string) error
	Sweep(idle time.Duration) int
	Shutdown()
}

// deckView 一次页面加载对应的卡组
type deckView struct {
	id   string
	deck *deck.Deck
	now  func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *deckView) touch() {
	v.mu.Lock()
	v.lastSeen = v.now()
	v.mu.Unlock()
}

func (v *deckView) IdleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *deckView) OnExit() { v.deck.Close() }

type deckService struct {
	event    config.EventConfig
	delay    time.Duration
	decks    *registry[*deckView]
	sessions session.Store
	handoff  *jwt.Manager
	logger   *zap.Logger

	source   func() random.Source
	deckOpts []deck.Option
	now      func() time.Time
}

// NewDeckService 创建 DeckService 实例
func NewDeckService(
	cfg *config.Config,
	sessions session.Store,
	handoff *jwt.Manager,
	logger *zap.Logger,
) DeckService {
	return &deckService{
		event:    cfg.Event,
		delay:    cfg.Deck.SettleDelay,
		decks:    newRegistry[*deckView](),
		sessions: sessions,
		handoff:  handoff,
		logger:   logger.Named("deck"),
		source:   random.Crypto,
		now:      time.Now,
	}
}

// ────────────────────── Enter ──────────────────────

func (s *deckService) Enter(ctx context.Context, tabID, handoffToken string) (*DeckEntry, error) {
	attendee, fromToken := s.resolveAttendee(ctx, tabID, handoffToken)
	if attendee == nil {
		return nil, ErrNoAttendee
	}

	opts := append([]deck.Option{deck.WithSettleDelay(s.delay)}, s.deckOpts...)
	d, err := deck.New(prompt.All(), s.source(), opts...)
	if err != nil {
		s.logger.Error("创建卡组失败", zap.Error(err))
		return nil, err
	}

	view := &deckView{id: uuid.NewString(), deck: d, now: s.now, lastSeen: s.now()}
	s.decks.put(view.id, view)

	return &DeckEntry{
		Attendee:  *attendee,
		Deck:      toDeckResponse(view),
		UploadURL: s.event.UploadURL,
		FromToken: fromToken,
	}, nil
}

// resolveAttendee 跳转 Token 优先，会话存储兜底。
// Cookie 由同源的所有标签页共享，Token 只对签发它的标签页生效。
func (s *deckService) resolveAttendee(ctx context.Context, tabID, handoffToken string) (*dto.AttendeeResponse, bool) {
	if handoffToken != "" {
		claims, err := s.handoff.ParseHandoff(handoffToken)
		switch {
		case err != nil:
			s.logger.Debug("跳转 Token 无效，改读会话存储", zap.Error(err))
		case claims.Tab != tabID:
			s.logger.Debug("跳转 Token 属于其他标签页，改读会话存储", zap.String("tab_id", tabID))
		case claims.Name != "":
			return &dto.AttendeeResponse{
				Name:          claims.Name,
				Location:      claims.Location,
				CheckInLogged: claims.CheckInLogged,
			}, true
		}
	}

	stored := s.sessions.Load(ctx, tabID)
	if stored == nil {
		return nil, false
	}

	name := strings.TrimSpace(stored.Name)
	if name == "" {
		name = GuestName
	}
	return &dto.AttendeeResponse{
		Name:          name,
		Location:      stored.Location,
		CheckInLogged: stored.CheckInLogged,
	}, false
}

// ────────────────────── Get / Next ──────────────────────

func (s *deckService) Get(_ context.Context, deckID string) (*dto.DeckResponse, error) {
	view, ok := s.decks.get(deckID)
	if !ok {
		return nil, ErrDeckNotFound
	}
	view.touch()
	return toDeckResponse(view), nil
}

func (s *deckService) Next(_ context.Context, deckID string) (*dto.NextCardResponse, error) {
	view, ok := s.decks.get(deckID)
	if !ok {
		return nil, ErrDeckNotFound
	}
	view.touch()

	accepted := view.deck.Next()
	return &dto.NextCardResponse{
		Accepted: accepted,
		Deck:     *toDeckResponse(view),
	}, nil
}

// ────────────────────── Exit / Sweep ──────────────────────

func (s *deckService) Exit(_ context.Context, deckID string) error {
	if !s.decks.remove(deckID) {
		return ErrDeckNotFound
	}
	return nil
}

func (s *deckService) Sweep(idle time.Duration) int {
	return s.decks.sweep(idle)
}

func (s *deckService) Shutdown() {
	s.decks.closeAll()
}

// ────────────────────── 转换 ──────────────────────

func toDeckResponse(v *deckView) *dto.DeckResponse {
	st := v.deck.State()
	cards := make([]dto.CardResponse, len(st.Cards))
	for i, c := range st.Cards {
		cards[i] = dto.CardResponse{
			Position: c.Position,
			Prompt:   c.Prompt,
			Layer:    c.Layer,
		}
	}
	return &dto.DeckResponse{
		ID:        v.id,
		Size:      v.deck.Size(),
		Cursor:    st.Cursor,
		Advancing: st.Advancing,
		Cards:     cards,
	}
}
