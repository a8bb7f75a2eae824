package notification

import (
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")
var ErrInvalidNotification = errors.New("invalid notification")

type Type string

const (
	Info    Type = "INFO"
	Warning Type = "WARNING"
	Success Type = "SUCCESS"
	Error   Type = "ERROR"
)

func (t Type) Valid() bool {
	switch t {
	case Info, Warning, Success, Error:
		return true
	}
	return false
}

type Notification struct {
	Id        int
	Title     string
	Message   string
	Type      Type
	IsRead    bool
	CreatedAt time.Time
}
