package service

import (
	"sync"
	"time"
)

// lifecycle 注册表中的条目：退出时释放资源，并报告最近访问时间
type lifecycle interface {
	OnExit()
	IdleSince() time.Time
}

// registry 进程内的页面视图注册表（签到流程 / 卡组）。
// 条目被移除时一定会执行 OnExit。
type registry[T lifecycle] struct {
	mu    sync.RWMutex
	items map[string]T
	now   func() time.Time
}

func newRegistry[T lifecycle]() *registry[T] {
	return &registry[T]{
		items: make(map[string]T),
		now:   time.Now,
	}
}

func (r *registry[T]) put(id string, item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = item
}

func (r *registry[T]) get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok
}

// remove 移除并执行 OnExit；不存在时返回 false
func (r *registry[T]) remove(id string) bool {
	r.mu.Lock()
	item, ok := r.items[id]
	if ok {
		delete(r.items, id)
	}
	r.mu.Unlock()

	if ok {
		item.OnExit()
	}
	return ok
}

// sweep 移除空闲超过 idle 的条目，返回移除数量
func (r *registry[T]) sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var expired []T
	for id, item := range r.items {
		if item.IdleSince().Before(cutoff) {
			expired = append(expired, item)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, item := range expired {
		item.OnExit()
	}
	return len(expired)
}

// closeAll 关闭全部条目
func (r *registry[T]) closeAll() int {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]T)
	r.mu.Unlock()

	for _, item := range items {
		item.OnExit()
	}
	return len(items)
}

func (r *registry[T]) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
