package port

type NotifyLevel string

const (
	NotifyInfo    NotifyLevel = "info"
	NotifySuccess NotifyLevel = "success"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
)

type Notification struct {
	Level   NotifyLevel `json:"level"`
	Message string      `json:"message"`
	TimerID int64       `json:"timerId,omitempty,string"`
	At      int64       `json:"at"`
}

// Notifier 用户可见的通知通道，不阻塞调用方。
type Notifier interface {
	Notify(username string, n Notification)
}
