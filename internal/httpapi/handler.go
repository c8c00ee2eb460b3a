package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/teawithlucas/keycloak-provisioner/internal/provisioning"
)

// MissingBodyMessage is the plain-text reply to an absent or unreadable body.
const MissingBodyMessage = "Required request body is missing"

const maxBodyBytes = 1 << 20

// Provisioner creates users in the identity provider.
type Provisioner interface {
	Provision(ctx context.Context, username, password string) provisioning.Outcome
}

// Handler serves the user endpoints.
type Handler struct {
	provisioner Provisioner
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewHandler returns a Handler backed by p.
func NewHandler(p Provisioner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		provisioner: p,
		logger:      logger,
		validate:    newValidator(),
	}
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateUser(w, r)
	if err != nil {
		h.logger.Debug("unreadable create user body", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeText(w, http.StatusBadRequest, MissingBodyMessage)
		return
	}
	if errs := fieldErrors(h.validate, *req); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	outcome := h.provisioner.Provision(r.Context(), req.Username, req.Password)
	switch outcome.Kind {
	case provisioning.Created:
		h.logger.Info("user added", "username", req.Username, "request_id", requestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusCreated)
	case provisioning.DuplicateUser:
		writeError(w, http.StatusConflict, outcome.Message)
	case provisioning.CommunicationFailure, provisioning.TransportFailure:
		writeError(w, http.StatusInternalServerError, outcome.Message)
	default:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("unexpected provisioning outcome %s", outcome.Kind))
	}
}

// decodeCreateUser reads a JSON object body. Empty bodies, null and
// anything that is not an object of the expected shape are errors. Data after
// the first JSON value is ignored.
func decodeCreateUser(w http.ResponseWriter, r *http.Request) (*createUserRequest, error) {
	if r.Body == nil {
		return nil, io.EOF
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.EOF
	}
	var req *createUserRequest
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&req); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("null body")
	}
	return req, nil
}
