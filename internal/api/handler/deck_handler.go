package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cjenwere4/5590-check-in-app/internal/service"
	"github.com/cjenwere4/5590-check-in-app/pkg/response"
)

// CodeDeckNotFound 卡组不存在
const CodeDeckNotFound = 17101

// DeckHandler 破冰卡组 HTTP 处理器
type DeckHandler struct {
	deckSvc service.DeckService
}

// NewDeckHandler 创建 DeckHandler
func NewDeckHandler(deckSvc service.DeckService) *DeckHandler {
	return &DeckHandler{deckSvc: deckSvc}
}

// GetDeck 获取当前可见卡片
// GET /api/v1/decks/:id
func (h *DeckHandler) GetDeck(c *gin.Context) {
	result, err := h.deckSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// NextCard 翻下一张；上一次翻牌未完成时 accepted=false
// POST /api/v1/decks/:id/next
func (h *DeckHandler) NextCard(c *gin.Context) {
	result, err := h.deckSvc.Next(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if result.Accepted {
		response.Accepted(c, result)
		return
	}
	response.OK(c, result)
}

// ExitDeck 离开破冰页（onExit）
// DELETE /api/v1/decks/:id
func (h *DeckHandler) ExitDeck(c *gin.Context) {
	if err := h.deckSvc.Exit(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DeckHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrDeckNotFound) {
		response.NotFound(c, CodeDeckNotFound, "卡组不存在或已过期")
		return
	}
	_ = c.Error(err)
	response.InternalError(c)
}
