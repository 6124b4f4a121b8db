package events

import (
	"time"

	"ppn/payment"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventPaymentSubmitted EventType = "PaymentSubmitted"
	EventPaymentCommitted EventType = "PaymentCommitted"
	EventPaymentFailed    EventType = "PaymentFailed"
)

// LedgerEvent represents any event that occurs in the payment ledger
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
	PaymentHash() string
}

// PaymentSubmitted event when a request is accepted for processing
type PaymentSubmitted struct {
	hash      string
	request   *payment.Request
	timestamp time.Time
}

func NewPaymentSubmitted(hash string, request *payment.Request) *PaymentSubmitted {
	return &PaymentSubmitted{
		hash:      hash,
		request:   request,
		timestamp: time.Now(),
	}
}

func (e *PaymentSubmitted) Type() EventType {
	return EventPaymentSubmitted
}

func (e *PaymentSubmitted) Timestamp() time.Time {
	return e.timestamp
}

func (e *PaymentSubmitted) PaymentHash() string {
	return e.hash
}

func (e *PaymentSubmitted) Request() *payment.Request {
	return e.request
}

// PaymentCommitted event when a payment settles on the ledger
type PaymentCommitted struct {
	hash          string
	sequence      uint64
	recordAddress string
	timestamp     time.Time
}

func NewPaymentCommitted(hash string, sequence uint64, recordAddress string) *PaymentCommitted {
	return &PaymentCommitted{
		hash:          hash,
		sequence:      sequence,
		recordAddress: recordAddress,
		timestamp:     time.Now(),
	}
}

func (e *PaymentCommitted) Type() EventType {
	return EventPaymentCommitted
}

func (e *PaymentCommitted) Timestamp() time.Time {
	return e.timestamp
}

func (e *PaymentCommitted) PaymentHash() string {
	return e.hash
}

func (e *PaymentCommitted) Sequence() uint64 {
	return e.sequence
}

func (e *PaymentCommitted) RecordAddress() string {
	return e.recordAddress
}

// PaymentFailed event when a payment fails validation or commit
type PaymentFailed struct {
	hash         string
	errorCode    string
	errorMessage string
	timestamp    time.Time
}

func NewPaymentFailed(hash string, errorCode string, errorMessage string) *PaymentFailed {
	return &PaymentFailed{
		hash:         hash,
		errorCode:    errorCode,
		errorMessage: errorMessage,
		timestamp:    time.Now(),
	}
}

func (e *PaymentFailed) Type() EventType {
	return EventPaymentFailed
}

func (e *PaymentFailed) Timestamp() time.Time {
	return e.timestamp
}

func (e *PaymentFailed) PaymentHash() string {
	return e.hash
}

func (e *PaymentFailed) ErrorCode() string {
	return e.errorCode
}

func (e *PaymentFailed) ErrorMessage() string {
	return e.errorMessage
}
