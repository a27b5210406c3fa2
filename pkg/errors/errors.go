package errors

import "errors"

// ErrStorageUnavailable 会话存储不可用（Redis 断开或未配置）
var ErrStorageUnavailable = errors.New("会话存储不可用")

// ErrRemoteDisabled 未配置远端签到记录
var ErrRemoteDisabled = errors.New("远端签到记录未启用")
