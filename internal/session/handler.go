package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/staffsync/staff-management/internal/identity"
	"github.com/staffsync/staff-management/internal/transport"
	"github.com/staffsync/staff-management/pkg/logger"
)

// TokenIssuer mints bearer tokens for authenticated principals. The local
// identity provider implements it.
type TokenIssuer interface {
	IssueToken(p identity.Principal) (string, time.Time, error)
}

type ManagerAPI interface {
	Login(ctx context.Context, email, secret string) (identity.Principal, error)
	SignUp(ctx context.Context, email, secret string, profile identity.ProfileFields) (identity.Principal, error)
	Logout(ctx context.Context) error
	ResendVerification(ctx context.Context) error
	State() State
}

type Handler struct {
	*transport.BaseHandler
	Manager ManagerAPI
	Issuer  TokenIssuer
}

func NewHandler(manager ManagerAPI, issuer TokenIssuer) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Manager:     manager,
		Issuer:      issuer,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Manager.Login(r.Context(), dto.Email, dto.Password)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeTokens(w, p)
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var dto SignUpDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Manager.SignUp(r.Context(), dto.Email, dto.Password, identity.ProfileFields{Name: dto.Name})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeTokens(w, p)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Logout(r.Context()); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.ResendVerification(r.Context()); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "verification sent"})
}

// State reports the readiness flags the presentation layer polls while the
// session settles.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Manager.State())
}

func (h *Handler) writeTokens(w http.ResponseWriter, p identity.Principal) {
	token, expiresAt, err := h.Issuer.IssueToken(p)
	if err != nil {
		h.Logger.Error("token issuance failed", "uid", p.UID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "could not issue session token")
		return
	}
	h.WriteJSON(w, http.StatusOK, SessionTokens{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Email:       p.Email,
		Verified:    p.Verified,
	})
}
