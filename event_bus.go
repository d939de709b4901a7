package manifest

import (
	"sync"
	"time"

	"github.com/simon020286/go-manifest/models"
)

// eventBus manages event distribution to registered listeners (private).
// Emit and Wait may be called concurrently: pending deliveries are counted
// under pendingMu rather than with a WaitGroup, which forbids Add during Wait.
type eventBus struct {
	listeners []models.EventListener
	mutex     sync.RWMutex

	pendingMu sync.Mutex
	drained   *sync.Cond
	pending   int // deliveries still running
}

// newEventBus creates a new eventBus instance (private)
func newEventBus() *eventBus {
	eb := &eventBus{
		listeners: make([]models.EventListener, 0),
	}
	eb.drained = sync.NewCond(&eb.pendingMu)
	return eb
}

// addListener registers a new listener
func (eb *eventBus) addListener(listener models.EventListener) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.listeners = append(eb.listeners, listener)
}

// Emit sends an event to all registered listeners
func (eb *eventBus) Emit(eventType models.EventType, data map[string]interface{}) {
	eb.mutex.RLock()
	listeners := make([]models.EventListener, len(eb.listeners))
	copy(listeners, eb.listeners)
	eb.mutex.RUnlock()

	event := models.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	if len(listeners) == 0 {
		return
	}

	eb.pendingMu.Lock()
	eb.pending += len(listeners)
	eb.pendingMu.Unlock()

	// Notify all listeners asynchronously so recording never blocks the run
	for _, listener := range listeners {
		go func(l models.EventListener) {
			defer eb.done()
			l.OnEvent(event)
		}(listener)
	}
}

func (eb *eventBus) done() {
	eb.pendingMu.Lock()
	defer eb.pendingMu.Unlock()
	eb.pending--
	if eb.pending == 0 {
		eb.drained.Broadcast()
	}
}

// Wait waits for all pending events to be processed
func (eb *eventBus) Wait() {
	eb.pendingMu.Lock()
	defer eb.pendingMu.Unlock()
	for eb.pending > 0 {
		eb.drained.Wait()
	}
}

// EmitInputAppended emits an event for a newly recorded input
func (eb *eventBus) EmitInputAppended(runID, name string) {
	eb.Emit(models.EventInputAppended, map[string]interface{}{
		"run_id": runID,
		"name":   name,
	})
}

// EmitOutputAppended emits an event for a newly recorded output
func (eb *eventBus) EmitOutputAppended(runID, name string) {
	eb.Emit(models.EventOutputAppended, map[string]interface{}{
		"run_id": runID,
		"name":   name,
	})
}

// EmitReportSaved emits a report written event
func (eb *eventBus) EmitReportSaved(runID, destination string, inputs, outputs int) {
	eb.Emit(models.EventReportSaved, map[string]interface{}{
		"run_id":      runID,
		"destination": destination,
		"inputs":      inputs,
		"outputs":     outputs,
	})
}

// EmitReportError emits a report failure event
func (eb *eventBus) EmitReportError(runID, destination string, err error) {
	eb.Emit(models.EventReportError, map[string]interface{}{
		"run_id":      runID,
		"destination": destination,
		"error":       err.Error(),
	})
}
