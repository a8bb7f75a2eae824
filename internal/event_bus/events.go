package event_bus

import "time"

const (
	NotificationCreatedType EventType = "notification.created"
	LetterHandledType       EventType = "letter.handled"
	JobFinishedType         EventType = "job.finished"
)

type NotificationCreated struct {
	Id        int
	Title     string
	Type      string
	CreatedAt time.Time
}

// LetterHandled is published when an invitation is marked handled or unhandled.
type LetterHandled struct {
	LetterType string
	LetterId   int
	Handled    bool
}

type JobFinished struct {
	Name     string
	RunId    string
	Duration time.Duration
	Err      error
}
