package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/camden-git/identitybackend/repository"
	"github.com/camden-git/identitybackend/services"
)

const maxRequestBodyBytes = 1 << 20

// IdentityResolver is the part of services.IdentityService the HTTP layer uses
type IdentityResolver interface {
	Resolve(ctx context.Context, email, phone *string) (*services.ConsolidatedIdentity, error)
	Lookup(ctx context.Context, contactID uint) (*services.ConsolidatedIdentity, error)
}

// IdentifyResponse wraps the consolidated identity
type IdentifyResponse struct {
	Contact *services.ConsolidatedIdentity `json:"contact"`
}

type IdentifyHandler struct {
	Service IdentityResolver
	Rules   []ValidationRule
	Logger  *zap.Logger
}

func NewIdentifyHandler(service IdentityResolver, logger *zap.Logger) *IdentifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifyHandler{Service: service, Rules: IdentifyRules(), Logger: logger}
}

// Identify handles POST /identify
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Sanitize()

	if _, err := ValidateRequest(&req, h.Rules); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			WriteAPIError(w, http.StatusBadRequest, verr.Message)
			return
		}
		WriteInternalError(w)
		return
	}

	identity, err := h.Service.Resolve(r.Context(), req.Email, req.PhoneNumber)
	if err != nil {
		h.logFailure(r, "identify failed", err)
		WriteInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, IdentifyResponse{Contact: identity})
}

// GetContactIdentity handles GET /contacts/{contact_id}/identity
func (h *IdentifyHandler) GetContactIdentity(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "contact_id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		WriteAPIError(w, http.StatusBadRequest, "Invalid contact_id")
		return
	}

	identity, err := h.Service.Lookup(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			WriteAPIError(w, http.StatusNotFound, "Contact not found")
			return
		}
		h.logFailure(r, "identity lookup failed", err)
		WriteInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, IdentifyResponse{Contact: identity})
}

func (h *IdentifyHandler) logFailure(r *http.Request, msg string, err error) {
	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	var consistency *services.DataConsistencyError
	if errors.As(err, &consistency) {
		fields = append(fields, zap.Uint("inconsistent_contact_id", consistency.ContactID))
	}
	h.Logger.Error(msg, fields...)
}
