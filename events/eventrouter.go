package events

// EventRouter fans payment events out to bus subscribers. It exists so the
// ledger and service layers publish through one narrow surface instead of
// holding the bus directly.
type EventRouter struct {
	eventBus *EventBus
}

// NewEventRouter creates a new EventRouter instance
func NewEventRouter(eventBus *EventBus) *EventRouter {
	return &EventRouter{
		eventBus: eventBus,
	}
}

// PublishPaymentEvent publishes a payment-specific event
func (er *EventRouter) PublishPaymentEvent(event LedgerEvent) {
	er.eventBus.Publish(event)
}

// Subscribe subscribes to all payment events
func (er *EventRouter) Subscribe() (SubscriberID, chan LedgerEvent) {
	return er.eventBus.Subscribe()
}

// Unsubscribe removes a subscription by ID
func (er *EventRouter) Unsubscribe(id SubscriberID) bool {
	return er.eventBus.Unsubscribe(id)
}
