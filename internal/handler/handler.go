// Package handler holds the echo HTTP handlers.  Handlers bind and
// validate input, call the service and translate typed errors into
// {"error", "message"} bodies.
package handler

import (
	"github.com/iliyamo/rail-booking/internal/logger"
	"github.com/iliyamo/rail-booking/internal/service"
)

// Handler serves the public, passenger and employee endpoints.
type Handler struct {
	svc *service.Service
	log logger.Logger
}

// New constructs a Handler and panics if svc is nil.
func New(svc *service.Service, log logger.Logger) *Handler {
	if svc == nil {
		panic("nil service passed to handler.New")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log}
}
