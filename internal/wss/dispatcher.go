package wss

import (
	"errors"

	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
	"go.uber.org/zap"
)

// WsHandlerType defines the signature for a WebSocket event handler
type WsHandlerType func(*wsstypes.WsContext) error

// Dispatcher is the single authoritative event-handler table; every inbound
// event is valid only if a handler was registered for it.
type Dispatcher struct {
	handlers map[string]WsHandlerType
	log      *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]WsHandlerType),
		log:      logger,
	}
}

func (d *Dispatcher) Register(event string, handler WsHandlerType) {
	d.log.Debug("registering handler", zap.String("event", event))
	d.handlers[event] = handler
}

func (d *Dispatcher) Dispatch(event string, ctx *wsstypes.WsContext) error {
	handler, ok := d.handlers[event]
	if !ok {
		return errors.New("unknown event type: " + event)
	}

	err := handler(ctx)
	if err != nil {
		d.log.Warn("handler error",
			zap.String("event", event),
			zap.String("connId", ctx.ConnID),
			zap.Error(err))
	}
	return err
}
