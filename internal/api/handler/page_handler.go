package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cjenwere4/5590-check-in-app/internal/service"
	"github.com/cjenwere4/5590-check-in-app/pkg/response"
)

// flowPollInterval 签到页轮询定位状态的间隔
const flowPollInterval = 700 * time.Millisecond

// PageHandler 页面处理器：签到页与破冰页
type PageHandler struct {
	checkInSvc  service.CheckInService
	deckSvc     service.DeckService
	eventLabel  string
	settleDelay time.Duration
}

// NewPageHandler 创建 PageHandler
func NewPageHandler(checkInSvc service.CheckInService, deckSvc service.DeckService, eventLabel string, settleDelay time.Duration) *PageHandler {
	return &PageHandler{
		checkInSvc:  checkInSvc,
		deckSvc:     deckSvc,
		eventLabel:  eventLabel,
		settleDelay: settleDelay,
	}
}

// CheckIn 签到页；每次加载创建一个签到流程（onEnter）
// GET /
func (h *PageHandler) CheckIn(c *gin.Context) {
	tabID, ok := MustGetTabID(c)
	if !ok {
		return
	}

	flow := h.checkInSvc.Enter(c.Request.Context(), tabID)

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "check_in.html", gin.H{
		"Flow":       flow,
		"TabID":      tabID,
		"EventLabel": h.eventLabel,
		"PollMs":     flowPollInterval.Milliseconds(),
	})
}

// Icebreakers 破冰页；无签到信息时重定向回签到页
// GET /icebreakers?tab=<标签页 ID>
func (h *PageHandler) Icebreakers(c *gin.Context) {
	tabID, ok := MustGetTabID(c)
	if !ok {
		return
	}

	// Cookie 缺失时以空串进入，由 Service 回退到会话存储
	token, _ := c.Cookie(HandoffCookieName)

	entry, err := h.deckSvc.Enter(c.Request.Context(), tabID, token)
	if err != nil {
		if errors.Is(err, service.ErrNoAttendee) {
			c.Redirect(http.StatusFound, "/")
			return
		}
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "icebreakers.html", gin.H{
		"Attendee":  entry.Attendee,
		"Deck":      entry.Deck,
		"UploadURL": entry.UploadURL,
		"SettleMs":  h.settleDelay.Milliseconds(),
		"TabID":     tabID,
	})
}
