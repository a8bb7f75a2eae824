package metrics

import (
	"strconv"

	"github.com/letterbox/letterbox/internal/event_bus"
)

// Subscribe counts domain events published on the bus. The returned function
// removes every subscription.
func Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	unsubs := []func(){
		event_bus.SubscribeTyped[event_bus.NotificationCreated](bus, event_bus.NotificationCreatedType,
			func(e event_bus.EventT[event_bus.NotificationCreated]) error {
				IncrementNotificationsCreated(e.Data.Type)
				return nil
			}),
		event_bus.SubscribeTyped[event_bus.LetterHandled](bus, event_bus.LetterHandledType,
			func(e event_bus.EventT[event_bus.LetterHandled]) error {
				InvitationsHandled.WithLabelValues(e.Data.LetterType, strconv.FormatBool(e.Data.Handled)).Inc()
				return nil
			}),
		event_bus.SubscribeTyped[event_bus.JobFinished](bus, event_bus.JobFinishedType,
			func(e event_bus.EventT[event_bus.JobFinished]) error {
				RecordJobRun(e.Data.Name, e.Data.Err, e.Data.Duration)
				return nil
			}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
