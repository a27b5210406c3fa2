package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cjenwere4/5590-check-in-app/config"
	"github.com/cjenwere4/5590-check-in-app/internal/model"
)

// RESTClient PostgREST 兼容接口写入客户端。
// 无状态：不持有 Cookie，也不保存会话。
type RESTClient struct {
	endpoint  string
	publicKey string
	client    *http.Client
}

// NewRESTClient 创建 REST 写入客户端
func NewRESTClient(cfg *config.RemoteConfig) *RESTClient {
	table := cfg.Table
	if table == "" {
		table = model.CheckIn{}.TableName()
	}
	return &RESTClient{
		endpoint:  strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + table,
		publicKey: cfg.PublicKey,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Insert 写入一条签到记录，非 2xx 视为失败
func (c *RESTClient) Insert(ctx context.Context, rec *model.CheckIn) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化签到记录失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造写入请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.publicKey)
	req.Header.Set("Authorization", "Bearer "+c.publicKey)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("写入请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("写入返回状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Name 驱动名
func (c *RESTClient) Name() string { return "rest" }
