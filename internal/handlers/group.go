package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/interflow/httpx"
	"github.com/diewo77/interflow/internal/middleware"
	"github.com/diewo77/interflow/internal/services"
	"github.com/diewo77/interflow/view"
)

// GroupHandler manages the ticket groups, HTML and JSON.
type GroupHandler struct{ Svc *services.GroupService }

func NewGroupHandler(svc *services.GroupService) *GroupHandler { return &GroupHandler{Svc: svc} }

// List: GET /groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Svc.List()
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_groups", nil)
			return
		}
		_ = view.Render(w, r, "groups.html", map[string]any{"Error": "Impossible de charger les groupes"})
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": groups})
		return
	}
	data := map[string]any{"Groups": groups, "SuggestedID": services.NewCode()}
	if msg, ok := middleware.PopFlash(w, r); ok {
		data["Flash"] = msg
	}
	_ = view.Render(w, r, "groups.html", data)
}

// Create: POST /groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var id, name string
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		id, name = req.ID, req.Name
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		id = strings.TrimSpace(r.Form.Get("id"))
		name = strings.TrimSpace(r.Form.Get("name"))
	}
	if strings.TrimSpace(name) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
		return
	}
	g, err := h.Svc.Create(id, name)
	if err != nil {
		if errors.Is(err, services.ErrGroupIDTaken) {
			httpx.JSONError(w, http.StatusConflict, "group_id_taken", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_group", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, g)
		return
	}
	middleware.Flash(w, r, "group_created")
	http.Redirect(w, r, "/groups", http.StatusSeeOther)
}

// Update: POST /groups/update?id=...
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var name string
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		name = req.Name
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		name = strings.TrimSpace(r.Form.Get("name"))
	}
	if strings.TrimSpace(name) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
		return
	}
	g, err := h.Svc.Rename(id, name)
	if err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_group", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, g)
		return
	}
	http.Redirect(w, r, "/groups", http.StatusSeeOther)
}

// Delete: POST /groups/delete?id=...
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_group", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	middleware.Flash(w, r, "group_deleted")
	http.Redirect(w, r, "/groups", http.StatusSeeOther)
}
