package handlers

import (
	"net/http"

	"github.com/diewo77/interflow/auth"
	"github.com/diewo77/interflow/httpx"
	"github.com/diewo77/interflow/internal/middleware"
	"github.com/diewo77/interflow/internal/models"
	"github.com/diewo77/interflow/view"

	"gorm.io/gorm"
)

// PageHandler serves the landing page and the authenticated dashboard.
type PageHandler struct{ DB *gorm.DB }

func NewPageHandler(db *gorm.DB) *PageHandler { return &PageHandler{DB: db} }

// Index: GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if msg, ok := middleware.PopFlash(w, r); ok {
		data["Flash"] = msg
	}
	if uid, ok := auth.UserIDFromContext(r.Context()); ok && uid != 0 {
		var user models.User
		if err := h.DB.First(&user, uid).Error; err == nil {
			data["User"] = user
		}
	}
	_ = view.Render(w, r, "index.html", data)
}

// Dashboard: GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	data := map[string]any{}
	if msg, ok := middleware.PopFlash(w, r); ok {
		data["Flash"] = msg
	}
	var user models.User
	if err := h.DB.First(&user, uid).Error; err == nil {
		data["User"] = user
	}
	var pending, inProgress, done, groupCount int64
	h.DB.Model(&models.Ticket{}).Where("status = ?", models.StatusPending).Count(&pending)
	h.DB.Model(&models.Ticket{}).Where("status = ?", models.StatusInProgress).Count(&inProgress)
	h.DB.Model(&models.Ticket{}).Where("status = ?", models.StatusDone).Count(&done)
	h.DB.Model(&models.Group{}).Count(&groupCount)
	stats := map[string]any{
		"Pending": pending, "InProgress": inProgress, "Done": done,
		"Total": pending + inProgress + done, "Groups": groupCount,
	}
	data["Stats"] = stats
	var recent []models.Ticket
	h.DB.Order("created_at desc").Limit(5).Find(&recent)
	data["RecentTickets"] = recent
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"stats": stats, "recent": recent})
		return
	}
	if err := view.Render(w, r, "dashboard.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("render error")); werr != nil {
			_ = werr
		}
	}
}
