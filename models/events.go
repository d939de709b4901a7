package models

import (
	"time"
)

// EventType is the kind of lifecycle event a Manifest emits
type EventType string

const (
	EventInputAppended  EventType = "input.appended"
	EventOutputAppended EventType = "output.appended"

	EventReportSaved EventType = "report.saved"
	EventReportError EventType = "report.error"
)

// Event is a generic manifest lifecycle event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// EventListener receives events from a Manifest
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to EventListener
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}
