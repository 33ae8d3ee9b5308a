package automation

import (
	"context"

	"appointly/cmd/internal/events"
	"github.com/labstack/gommon/log"
)

// EventHandler turns lifecycle events into automation runs.
type EventHandler struct {
	payloads   *PayloadBuilder
	dispatcher *Dispatcher
}

func NewEventHandler(payloads *PayloadBuilder, dispatcher *Dispatcher) *EventHandler {
	return &EventHandler{payloads: payloads, dispatcher: dispatcher}
}

func (h *EventHandler) Handle(ctx context.Context, evt events.LifecycleEvent) error {
	payload := h.payloads.Build(ctx, evt.Appointment)
	res := h.dispatcher.Dispatch(ctx, evt.OrganizationID, payload, evt.Type)
	if len(res.Executions) > 0 {
		log.Infof("%s on appointment %s: %d automations started, %d failed",
			evt.Type, evt.Appointment.ID, res.Started(), res.Failed())
	}
	return nil
}
