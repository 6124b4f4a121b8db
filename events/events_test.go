package events

import (
	"testing"
	"time"

	"ppn/payment"
)

func TestEventBus(t *testing.T) {
	eventBus := NewEventBus()

	// Test subscription to all events
	subID, eventChan := eventBus.Subscribe()

	// Verify subscription count
	if count := eventBus.GetTotalSubscriptions(); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}

	// Test publishing event
	req := &payment.Request{
		Sender:   "sender",
		Receiver: "receiver",
		Amount:   100,
		Sequence: 1,
	}

	hash := req.Hash()
	event := NewPaymentSubmitted(hash, req)

	// Publish event in goroutine to avoid blocking
	go func() {
		eventBus.Publish(event)
	}()

	// Wait for event
	select {
	case receivedEvent := <-eventChan:
		if receivedEvent.Type() != EventPaymentSubmitted {
			t.Errorf("Expected PaymentSubmitted, got %s", receivedEvent.Type())
		}
		if receivedEvent.PaymentHash() != hash {
			t.Errorf("Expected payment hash %s, got %s", hash, receivedEvent.PaymentHash())
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for event")
	}

	// Test unsubscribe
	if !eventBus.Unsubscribe(subID) {
		t.Error("Expected unsubscribe to succeed")
	}

	// Verify subscription count is 0
	if count := eventBus.GetTotalSubscriptions(); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}
}

func TestLedgerEvents(t *testing.T) {
	// Test PaymentSubmitted
	req := &payment.Request{
		Sender:   "sender",
		Receiver: "receiver",
		Amount:   100,
		Sequence: 3,
	}

	event := NewPaymentSubmitted("payment-hash", req)
	if event.Type() != EventPaymentSubmitted {
		t.Errorf("Expected PaymentSubmitted, got %s", event.Type())
	}
	if event.Request().Sequence != 3 {
		t.Errorf("Expected sequence 3, got %d", event.Request().Sequence)
	}

	// Test PaymentCommitted
	committedEvent := NewPaymentCommitted("payment-hash", 123, "record-address")
	if committedEvent.Type() != EventPaymentCommitted {
		t.Errorf("Expected PaymentCommitted, got %s", committedEvent.Type())
	}
	if committedEvent.Sequence() != 123 {
		t.Errorf("Expected sequence 123, got %d", committedEvent.Sequence())
	}
	if committedEvent.RecordAddress() != "record-address" {
		t.Errorf("Expected record address 'record-address', got %s", committedEvent.RecordAddress())
	}

	// Test PaymentFailed
	failedEvent := NewPaymentFailed("payment-hash", "insufficient_funds", "spendable balance too low")
	if failedEvent.Type() != EventPaymentFailed {
		t.Errorf("Expected PaymentFailed, got %s", failedEvent.Type())
	}
	if failedEvent.ErrorCode() != "insufficient_funds" {
		t.Errorf("Expected error code 'insufficient_funds', got %s", failedEvent.ErrorCode())
	}
	if failedEvent.ErrorMessage() != "spendable balance too low" {
		t.Errorf("Expected error message 'spendable balance too low', got %s", failedEvent.ErrorMessage())
	}
}

func TestMultipleSubscribers(t *testing.T) {
	eventBus := NewEventBus()

	// Subscribe multiple clients to all events
	subID1, eventChan1 := eventBus.Subscribe()
	subID2, eventChan2 := eventBus.Subscribe()

	// Verify subscription count
	if count := eventBus.GetTotalSubscriptions(); count != 2 {
		t.Errorf("Expected 2 subscribers, got %d", count)
	}

	// Test publishing event
	hash := "test-payment-hash"
	event := NewPaymentCommitted(hash, 7, "record-address")

	// Publish event
	eventBus.Publish(event)

	// Both subscribers should receive the event
	select {
	case receivedEvent := <-eventChan1:
		if receivedEvent.PaymentHash() != hash {
			t.Errorf("Expected payment hash %s, got %s", hash, receivedEvent.PaymentHash())
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for event on channel 1")
	}

	select {
	case receivedEvent := <-eventChan2:
		if receivedEvent.PaymentHash() != hash {
			t.Errorf("Expected payment hash %s, got %s", hash, receivedEvent.PaymentHash())
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for event on channel 2")
	}

	// Clean up
	eventBus.Unsubscribe(subID1)
	eventBus.Unsubscribe(subID2)

	// Verify subscription count is 0
	if count := eventBus.GetTotalSubscriptions(); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}
}

func TestEventRouter(t *testing.T) {
	router := NewEventRouter(NewEventBus())

	subID, eventChan := router.Subscribe()
	router.PublishPaymentEvent(NewPaymentFailed("payment-hash", "unauthorized", "signature verification failed"))

	select {
	case receivedEvent := <-eventChan:
		if receivedEvent.Type() != EventPaymentFailed {
			t.Errorf("Expected PaymentFailed, got %s", receivedEvent.Type())
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for routed event")
	}

	if !router.Unsubscribe(subID) {
		t.Error("Expected unsubscribe to succeed")
	}
}
