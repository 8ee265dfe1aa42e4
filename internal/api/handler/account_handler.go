package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"users_sheet/internal/app/service"
	"users_sheet/internal/common"

	"github.com/go-chi/chi/v5"
)

type AccountHandler struct {
	authService *service.AuthService
}

func NewAccountHandler(authService *service.AuthService) *AccountHandler {
	return &AccountHandler{authService: authService}
}

func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signin", h.signIn)
	r.Post("/register", h.register)
	r.Post("/signout", h.signOut)
	r.Get("/access-denied", h.accessDenied)
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

func (h *AccountHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithDomainError(w, fmt.Errorf("decode request: %w: %w", common.ErrBadRequest, err))
		return
	}
	if req.ReturnURL == "" {
		req.ReturnURL = r.URL.Query().Get("returnUrl")
	}

	res, err := h.authService.SignIn(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, redirectResponse{Redirect: res.Redirect})
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithDomainError(w, fmt.Errorf("decode request: %w: %w", common.ErrBadRequest, err))
		return
	}

	res, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, res)
}

func (h *AccountHandler) signOut(w http.ResponseWriter, r *http.Request) {
	to, err := h.authService.SignOut(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *AccountHandler) accessDenied(w http.ResponseWriter, r *http.Request) {
	to, err := h.authService.AccessDenied(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
