package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 标签页 ID 的传递方式：页面脚本保存在 sessionStorage，
// 接口请求通过请求头携带，整页跳转通过查询参数携带
const (
	TabHeaderName = "X-Tab-ID"
	TabQueryParam = "tab"
)

const tabIDKey = "tab_id"

// TabSession 标签页会话中间件
// 依次读取 X-Tab-ID 请求头与 tab 查询参数，均缺失或非法时签发新 ID。
// 不使用 Cookie：Cookie 由同源的所有标签页共享，无法区分标签页。
func TabSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tabID := c.GetHeader(TabHeaderName)
		if uuid.Validate(tabID) != nil {
			tabID = c.Query(TabQueryParam)
		}
		if uuid.Validate(tabID) != nil {
			tabID = uuid.NewString()
		}

		c.Set(tabIDKey, tabID)
		c.Next()
	}
}

// GetTabID 读取当前标签页 ID；未经过 TabSession 时返回空串
func GetTabID(c *gin.Context) string {
	return c.GetString(tabIDKey)
}
