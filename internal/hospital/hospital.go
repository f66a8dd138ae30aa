// Package hospital is the hospital registry: one record per account, written
// once, announced with a HospitalRegistered event.
package hospital

import (
	"log/slog"

	"scanbo/internal/hospital/handler"
	"scanbo/internal/hospital/service"
	"scanbo/pkg/platform/middleware/auth"
)

// Service exposes registration and lookup.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService constructs the registry with required dependencies.
func NewService(store service.Store, notifier service.Notifier, opts ...service.Option) (*Service, error) {
	return service.New(store, notifier, opts...)
}

// NewHandler constructs the HTTP handler for the hospital routes.
func NewHandler(s *Service, validator auth.TokenValidator, logger *slog.Logger) *Handler {
	return handler.New(s, validator, logger)
}
