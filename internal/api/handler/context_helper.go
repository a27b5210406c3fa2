package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cjenwere4/5590-check-in-app/internal/api/middleware"
	"github.com/cjenwere4/5590-check-in-app/pkg/response"
)

// MustGetTabID 从 Gin 上下文中安全提取标签页 ID。
// 如果 TabSession 中间件未正确注入，返回 false 并写入 400 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetTabID(c *gin.Context) (string, bool) {
	tabID := middleware.GetTabID(c)
	if tabID == "" {
		response.BadRequest(c, response.CodeInvalidParams, "缺少标签页会话")
		return "", false
	}
	return tabID, true
}

// bindJSON 绑定 JSON 请求体；请求体超限返回 413，其余失败返回 400。
// 调用方应在返回 false 时直接 return。
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			return false
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidParams, "参数校验失败", err.Error())
		return false
	}
	return true
}
