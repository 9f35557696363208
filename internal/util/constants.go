package util

// 上报与聊天请求的校验上限
const (
	MaxTimeSpentSec  = 7200
	MaxChatMessages  = 50
	MaxMessageLength = 4000
	ChatContextSize  = 12
)

// 请求体大小上限，聊天按 50 条消息全部转义到最长估算
const (
	MaxReportBodyBytes = 64 << 10
	MaxChatBodyBytes   = 2 << 20
)
