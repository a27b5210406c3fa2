// Package deck 破冰提示卡组：洗牌、循环游标与三张可见卡片。
package deck

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjenwere4/5590-check-in-app/pkg/random"
)

// VisibleCards 同时可见的卡片数量
const VisibleCards = 3

// DefaultSettleDelay 翻到下一张前的视觉过渡时长
const DefaultSettleDelay = 320 * time.Millisecond

// ErrEmptyDeck 卡组不能为空
var ErrEmptyDeck = errors.New("卡组不能为空")

// Scheduler 延迟执行 fn，返回的 stop 用于取消尚未执行的任务
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

// AfterFunc 基于 time.AfterFunc 的默认调度器
func AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Card 一张可见卡片
type Card struct {
	Position string // 1 起始、两位补零，如 "01"
	Prompt   string
	Layer    int // 0 为最上层
}

// Shuffle Fisher–Yates 洗牌，返回新切片，不修改入参
func Shuffle(items []string, src random.Source) []string {
	out := make([]string, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deck 一次页面加载对应的卡组视图
type Deck struct {
	mu        sync.Mutex
	cards     []string
	cursor    int
	advancing bool
	closed    bool
	stop      func() bool

	delay    time.Duration
	schedule Scheduler
}

// Option 卡组选项
type Option func(*Deck)

// WithSettleDelay 设置过渡时长
func WithSettleDelay(d time.Duration) Option {
	return func(dk *Deck) { dk.delay = d }
}

// WithScheduler 替换调度器（测试中使用同步调度）
func WithScheduler(s Scheduler) Option {
	return func(dk *Deck) { dk.schedule = s }
}

// New 洗牌并创建卡组，游标从 0 开始
func New(prompts []string, src random.Source, opts ...Option) (*Deck, error) {
	if len(prompts) == 0 {
		return nil, ErrEmptyDeck
	}
	d := &Deck{
		cards:    Shuffle(prompts, src),
		delay:    DefaultSettleDelay,
		schedule: AfterFunc,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Next 请求翻到下一张。上一次翻牌尚未完成或卡组已关闭时忽略并返回 false。
func (d *Deck) Next() bool {
	d.mu.Lock()
	if d.closed || d.advancing {
		d.mu.Unlock()
		return false
	}
	d.advancing = true
	d.mu.Unlock()

	stop := d.schedule(d.delay, d.advance)

	d.mu.Lock()
	if d.advancing {
		d.stop = stop
	}
	d.mu.Unlock()
	return true
}

func (d *Deck) advance() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.cursor = (d.cursor + 1) % len(d.cards)
	d.advancing = false
	d.stop = nil
}

// Cursor 当前游标，始终位于 [0, Size())
func (d *Deck) Cursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// Size 卡组大小
func (d *Deck) Size() int { return len(d.cards) }

// Advancing 是否正在过渡
func (d *Deck) Advancing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.advancing
}

// Visible 返回当前、下一张、再下一张（循环取模）
func (d *Deck) Visible() []Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible()
}

// State 同一时刻的游标、过渡标记与可见卡片
type State struct {
	Cursor    int
	Advancing bool
	Cards     []Card
}

// State 原子读取卡组状态
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Cursor: d.cursor, Advancing: d.advancing, Cards: d.visible()}
}

func (d *Deck) visible() []Card {
	n := len(d.cards)
	out := make([]Card, VisibleCards)
	for layer := range out {
		idx := (d.cursor + layer) % n
		out[layer] = Card{
			Position: fmt.Sprintf("%02d", idx+1),
			Prompt:   d.cards[idx],
			Layer:    layer,
		}
	}
	return out
}

// Close 停止尚未执行的过渡，之后的 Next 全部忽略
func (d *Deck) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.advancing = false
}
