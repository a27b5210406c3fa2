package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/api/middleware"
	"github.com/cjenwere4/5590-check-in-app/internal/dto"
	"github.com/cjenwere4/5590-check-in-app/internal/service"
	"github.com/cjenwere4/5590-check-in-app/pkg/response"
)

// HandoffCookieName 签到页跳转至破冰页时携带状态的 Cookie
const HandoffCookieName = "checkin_handoff"

// ── 签到模块业务码 ──

const (
	CodeFlowNotFound = 17001
	CodeNameRequired = 17002
	CodeFlowBusy     = 17003
)

// CheckInHandler 签到流程 HTTP 处理器
type CheckInHandler struct {
	checkInSvc service.CheckInService
	handoff    config.HandoffConfig
}

// NewCheckInHandler 创建 CheckInHandler
func NewCheckInHandler(checkInSvc service.CheckInService, handoff config.HandoffConfig) *CheckInHandler {
	return &CheckInHandler{checkInSvc: checkInSvc, handoff: handoff}
}

// GetFlow 获取签到流程状态
// GET /api/v1/check-in/flows/:id
func (h *CheckInHandler) GetFlow(c *gin.Context) {
	result, err := h.checkInSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ReportPosition 上报浏览器定位结果
// POST /api/v1/check-in/flows/:id/position
func (h *CheckInHandler) ReportPosition(c *gin.Context) {
	var req dto.PositionReport
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.checkInSvc.ReportPosition(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Submit 提交签到
// POST /api/v1/check-in/flows/:id/submit
func (h *CheckInHandler) Submit(c *gin.Context) {
	tabID, ok := MustGetTabID(c)
	if !ok {
		return
	}

	var req dto.SubmitCheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.checkInSvc.Submit(c.Request.Context(), c.Param("id"), tabID, c.Request.UserAgent(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if result.Handoff != "" {
		c.SetSameSite(middleware.ParseSameSite(h.handoff.Cookie.SameSite))
		c.SetCookie(HandoffCookieName, result.Handoff, int(h.handoff.TTL.Seconds()), "/",
			h.handoff.Cookie.Domain, h.handoff.Cookie.Secure, true)
	}

	response.OK(c, result.Response)
}

// ExitFlow 离开签到页（onExit）
// DELETE /api/v1/check-in/flows/:id
func (h *CheckInHandler) ExitFlow(c *gin.Context) {
	if err := h.checkInSvc.Exit(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearSession 清除标签页会话与跳转状态
// POST /api/v1/session/clear
func (h *CheckInHandler) ClearSession(c *gin.Context) {
	tabID, ok := MustGetTabID(c)
	if !ok {
		return
	}

	h.checkInSvc.ClearSession(c.Request.Context(), tabID)

	c.SetSameSite(middleware.ParseSameSite(h.handoff.Cookie.SameSite))
	c.SetCookie(HandoffCookieName, "", -1, "/", h.handoff.Cookie.Domain, h.handoff.Cookie.Secure, true)

	response.OK(c, nil)
}

func (h *CheckInHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFlowNotFound):
		response.NotFound(c, CodeFlowNotFound, "签到流程不存在或已过期")
	case errors.Is(err, service.ErrNameRequired):
		response.BadRequest(c, CodeNameRequired, "请输入姓名")
	case errors.Is(err, service.ErrFlowBusy):
		response.Conflict(c, CodeFlowBusy, "正在定位或提交，请稍候")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
