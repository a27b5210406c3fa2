package dto

// ── 签到模块 DTO ──

// PositionReport 浏览器上报的定位结果
//   - supported=false：浏览器不支持定位
//   - error_code>0：定位失败（1 拒绝授权 / 2 位置不可用 / 3 超时 / 其他未知）
//   - 否则 latitude/longitude 必填
type PositionReport struct {
	Supported bool     `json:"supported"`
	Latitude  *float64 `json:"latitude"   binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude"  binding:"omitempty,min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy"   binding:"omitempty,min=0"`
	Timestamp int64    `json:"timestamp"` // 毫秒时间戳，0 表示使用服务端时间
	ErrorCode int      `json:"error_code" binding:"omitempty,min=0"`
}

// SubmitCheckInRequest 提交签到请求
type SubmitCheckInRequest struct {
	Name string `json:"name" binding:"max=200"`
}

// CoordinatesResponse 坐标信息
type CoordinatesResponse struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

// FlowResponse 签到流程状态
type FlowResponse struct {
	ID               string               `json:"id"`
	Status           string               `json:"status"`         // Locating / Resolving Address / Ready
	LocationState    string               `json:"location_state"` // 定位状态机当前状态
	Location         string               `json:"location"`
	Coordinates      *CoordinatesResponse `json:"coordinates"`
	CapturedAt       string               `json:"captured_at,omitempty"`
	Locating         bool                 `json:"locating"`
	ResolvingAddress bool                 `json:"resolving_address"`
	Submitting       bool                 `json:"submitting"`
	Busy             bool                 `json:"busy"`
	SubmitLabel      string               `json:"submit_label"`
	SubmitError      string               `json:"submit_error,omitempty"`
}

// AttendeeResponse 跳转时携带的来宾信息
type AttendeeResponse struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	CheckInLogged bool   `json:"check_in_logged"`
}

// SubmitCheckInResponse 提交签到结果
type SubmitCheckInResponse struct {
	Redirect      string           `json:"redirect"`
	Attendee      AttendeeResponse `json:"attendee"`
	CheckInLogged bool             `json:"check_in_logged"`
	Warning       string           `json:"warning,omitempty"`
}
