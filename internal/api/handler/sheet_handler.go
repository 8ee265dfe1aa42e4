package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"users_sheet/internal/app/service"
	"users_sheet/internal/common"

	"github.com/go-chi/chi/v5"
)

const usersPath = "/sheet/users"

type SheetHandler struct {
	adminService *service.AdminService
}

func NewSheetHandler(adminService *service.AdminService) *SheetHandler {
	return &SheetHandler{adminService: adminService}
}

func (h *SheetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Post("/block", h.bulk(h.adminService.Block))
	r.Post("/unblock", h.bulk(h.adminService.Unblock))
	r.Post("/delete", h.bulk(h.adminService.Delete))
}

type usersResponse struct {
	Users []service.AccountRow `json:"users"`
}

// bulkRequest carries one flag per rendered row, in rendered order.
type bulkRequest struct {
	Selected []bool `json:"selected"`
}

func (h *SheetHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.adminService.ListAccounts(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, usersResponse{Users: rows})
}

func (h *SheetHandler) bulk(action func(context.Context, []bool) (*service.BulkReport, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondWithDomainError(w, fmt.Errorf("decode request: %w: %w", common.ErrBadRequest, err))
			return
		}
		if _, err := action(r.Context(), req.Selected); err != nil {
			common.RespondWithDomainError(w, err)
			return
		}
		http.Redirect(w, r, usersPath, http.StatusSeeOther)
	}
}
