package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scanbo/internal/hospital/models"
	id "scanbo/pkg/domain"
	dErrors "scanbo/pkg/domain-errors"
	"scanbo/pkg/platform/httputil"
	"scanbo/pkg/platform/middleware/auth"
	"scanbo/pkg/requestcontext"
)

// Error codes specific to registration, returned in the "error" field.
const (
	ErrCodeAlreadyRegistered = "already_registered"
	ErrCodeTooLong           = "too_long"
)

// Service defines the interface for hospital registry operations.
type Service interface {
	Register(ctx context.Context, accountID id.AccountID, name, location []byte) (*models.Hospital, error)
	Get(ctx context.Context, accountID id.AccountID) (*models.Hospital, error)
}

// Handler handles hospital registry endpoints.
type Handler struct {
	service   Service
	validator auth.TokenValidator
	logger    *slog.Logger
}

func New(service Service, validator auth.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// Register mounts the hospital routes. Registration requires a bearer
// token; lookup is a public read.
func (h *Handler) Register(r chi.Router) {
	r.With(auth.RequireAuth(h.validator, h.logger)).Post("/hospitals", h.HandleRegister)
	r.Get("/hospitals/{accountID}", h.HandleGet)
}

// RegisterRequest carries name and location either as JSON strings or,
// for content that is not valid UTF-8, as base64 in the *_base64 fields.
// Giving both forms of one field is rejected.
type RegisterRequest struct {
	Name           string `json:"name"`
	Location       string `json:"location"`
	NameBase64     []byte `json:"name_base64,omitempty"`
	LocationBase64 []byte `json:"location_base64,omitempty"`
}

// fields returns the raw name and location bytes.
func (r RegisterRequest) fields() (name, location []byte, err error) {
	name, err = pickField("name", r.Name, r.NameBase64)
	if err != nil {
		return nil, nil, err
	}
	location, err = pickField("location", r.Location, r.LocationBase64)
	if err != nil {
		return nil, nil, err
	}
	return name, location, nil
}

func pickField(field, text string, raw []byte) ([]byte, error) {
	if raw == nil {
		return []byte(text), nil
	}
	if text != "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, field+" and "+field+"_base64 are mutually exclusive")
	}
	return raw, nil
}

// HospitalResponse always includes the base64 form so binary content
// survives the round trip.
type HospitalResponse struct {
	AccountID      string    `json:"account_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	NameBase64     []byte    `json:"name_base64"`
	LocationBase64 []byte    `json:"location_base64"`
	RegisteredAt   time.Time `json:"registered_at"`
}

func toResponse(h *models.Hospital) HospitalResponse {
	return HospitalResponse{
		AccountID:      h.AccountID.String(),
		Name:           h.Name.String(),
		Location:       h.Location.String(),
		NameBase64:     h.Name.Bytes(),
		LocationBase64: h.Location.Bytes(),
		RegisteredAt:   h.RegisteredAt.UTC(),
	}
}

// HandleRegister registers a hospital for the authenticated caller.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID := requestcontext.AccountID(ctx)
	if accountID.IsNil() {
		// RequireAuth always sets the account; reaching here means a wiring bug.
		h.logger.ErrorContext(ctx, "account missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register hospital request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	name, location, err := req.fields()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hospital, err := h.service.Register(ctx, accountID, name, location)
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(hospital))
}

func (h *Handler) writeRegisterError(ctx context.Context, w http.ResponseWriter, err error) {
	requestID := requestcontext.RequestID(ctx)
	switch {
	case errors.Is(err, models.ErrAlreadyRegistered):
		h.logger.InfoContext(ctx, "hospital already registered", "request_id", requestID)
		httputil.WriteJSON(w, http.StatusConflict, errorBody(ErrCodeAlreadyRegistered, "account already has a registered hospital"))
	case errors.Is(err, models.ErrTooLong):
		h.logger.InfoContext(ctx, "hospital field too long", "request_id", requestID)
		httputil.WriteJSON(w, http.StatusBadRequest, errorBody(ErrCodeTooLong, "name and location must not exceed the maximum length"))
	default:
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to register hospital",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
	}
}

// HandleGet returns the hospital stored for the account in the path.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hospital, err := h.service.Get(ctx, accountID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load hospital",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(hospital))
}

func errorBody(code, description string) map[string]string {
	return map[string]string{"error": code, "error_description": description}
}
