package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	icsProductId = "-//letterbox//letter calendar//EN"
	icsCalName   = "Letter invitations"
	// Letters only carry a start date; the feed shows each event as one hour.
	icsEventDuration = time.Hour
)

func eventUID(e Event) string {
	return fmt.Sprintf("%s-%d@letterbox", e.Type, e.Id)
}

// BuildICS renders events as an iCalendar feed. stamp is used as DTSTAMP.
func BuildICS(events []Event, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductId)
	cal.SetXWRCalName(icsCalName)

	for _, e := range events {
		vevent := cal.AddEvent(eventUID(e))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(e.Date)
		vevent.SetEndAt(e.Date.Add(icsEventDuration))
		vevent.SetSummary(e.Title)
		if e.Location != "" {
			vevent.SetLocation(e.Location)
		}
		description := fmt.Sprintf("Letter %s (%s)", e.LetterNumber, e.Type)
		if e.Description != "" {
			description += "\n" + e.Description
		}
		vevent.SetDescription(description)
		vevent.AddProperty(ics.ComponentPropertyCategories, string(e.Type))
	}
	return cal.Serialize()
}
