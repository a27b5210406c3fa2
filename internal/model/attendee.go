package model

import "time"

// Coordinates 浏览器定位得到的原始坐标
type Coordinates struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"` // 米；平台未提供时为 nil
}

// Attendee 在签到页与破冰卡组之间传递的来宾信息，生命周期与标签页会话一致
type Attendee struct {
	Name          string       `json:"name"`
	Location      string       `json:"location"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	CapturedAt    time.Time    `json:"captured_at"`
	CheckInLogged bool         `json:"check_in_logged"`
}
