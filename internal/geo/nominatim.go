package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cjenwere4/5590-check-in-app/config"
)

// Place 逆地理编码结果
type Place struct {
	DisplayName string   `json:"display_name"`
	Address     *Address `json:"address"`
}

// Geocoder 逆地理编码
type Geocoder interface {
	Reverse(ctx context.Context, latitude, longitude float64) (*Place, error)
}

// Nominatim OpenStreetMap Nominatim 逆地理编码客户端
type Nominatim struct {
	baseURL   string
	userAgent string
	zoom      int
	client    *http.Client
}

// NewNominatim 创建 Nominatim 客户端
func NewNominatim(cfg *config.GeocoderConfig) *Nominatim {
	zoom := cfg.Zoom
	if zoom <= 0 {
		zoom = 16
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		zoom:      zoom,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Reverse 按坐标查询地址，非 2xx 视为失败
func (n *Nominatim) Reverse(ctx context.Context, latitude, longitude float64) (*Place, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("zoom", strconv.Itoa(n.zoom))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构造逆地理编码请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("逆地理编码请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("逆地理编码返回状态码 %d", resp.StatusCode)
	}

	var place Place
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return nil, fmt.Errorf("解析逆地理编码响应失败: %w", err)
	}
	return &place, nil
}
