// Package geo 将浏览器定位结果解析为可读地址。
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ── 面向用户的固定文案 ──

const (
	LabelDetecting         = "Detecting location…"
	MsgPermissionDenied    = "Permission denied. Enable location access to proceed."
	MsgPositionUnavailable = "Location information is unavailable."
	MsgTimeout             = "Timed out while retrieving location."
	MsgUnknown             = "An unknown error occurred retrieving location."
	MsgUnsupported         = "Location services not supported in this browser"
)

// ErrorCode 平台定位错误码（与 W3C GeolocationPositionError 一致）
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

// ErrUnsupported 平台不支持定位
var ErrUnsupported = errors.New("geolocation unsupported")

// PositionError 定位失败
type PositionError struct {
	Code ErrorCode
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("geolocation error code %d", e.Code)
}

// Message 返回错误码对应的固定文案
func (e *PositionError) Message() string {
	switch e.Code {
	case CodePermissionDenied:
		return MsgPermissionDenied
	case CodePositionUnavailable:
		return MsgPositionUnavailable
	case CodeTimeout:
		return MsgTimeout
	default:
		return MsgUnknown
	}
}

// Position 一次定位结果
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Timestamp time.Time // 零值表示平台未提供
}

// Locator 单次定位请求（不做持续追踪）
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// LocatorFunc 函数适配器
type LocatorFunc func(ctx context.Context) (Position, error)

// Locate 实现 Locator
func (f LocatorFunc) Locate(ctx context.Context) (Position, error) { return f(ctx) }

// Reported 浏览器已上报的定位结果
type Reported struct {
	Supported bool
	Position  Position
	ErrorCode ErrorCode // 非 0 表示定位失败
}

// Locate 实现 Locator：直接返回上报结果
func (r Reported) Locate(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if !r.Supported {
		return Position{}, ErrUnsupported
	}
	if r.ErrorCode != 0 {
		return Position{}, &PositionError{Code: r.ErrorCode}
	}
	return r.Position, nil
}

// FallbackLabel 数字坐标标签
func FallbackLabel(latitude, longitude float64) string {
	return fmt.Sprintf("Lat: %.4f, Lon: %.4f", latitude, longitude)
}
