package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/interflow/auth"
	"github.com/diewo77/interflow/httpx"
	"github.com/diewo77/interflow/internal/formdata"
	"github.com/diewo77/interflow/internal/middleware"
	"github.com/diewo77/interflow/internal/models"
	"github.com/diewo77/interflow/internal/schema"
	"github.com/diewo77/interflow/internal/services"
	"github.com/diewo77/interflow/pdf"
	"github.com/diewo77/interflow/view"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// TicketHandler serves the authenticated ticket CRUD, both HTML and JSON.
type TicketHandler struct {
	DB  *gorm.DB
	Svc *services.TicketService
	Log zerolog.Logger
}

func NewTicketHandler(db *gorm.DB, svc *services.TicketService, log zerolog.Logger) *TicketHandler {
	return &TicketHandler{DB: db, Svc: svc, Log: log}
}

// List: GET /tickets – HTML or JSON
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	groupID := strings.TrimSpace(r.URL.Query().Get("group"))
	tickets, total, err := h.Svc.List(groupID, limit, offset)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_tickets", nil)
			return
		}
		_ = view.Render(w, r, "tickets.html", map[string]any{"Error": "Une erreur est survenue, veuillez réessayer plus tard"})
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": tickets, "total": total, "limit": limit, "offset": offset})
		return
	}
	data := map[string]any{"Tickets": tickets, "Total": total, "PageSize": limit, "Group": groupID}
	if msg, ok := middleware.PopFlash(w, r); ok {
		data["Flash"] = msg
	}
	_ = view.Render(w, r, "tickets.html", data)
}

// createRequest mirrors the authoring form. Pointer fields distinguish
// "absent" from "empty": an absent predefined field keeps its toggle off.
type createRequest struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Status       string                 `json:"status"`
	Type         *string                `json:"type"`
	Priority     *string                `json:"priority"`
	AssignedTo   *string                `json:"assigned_to"`
	GroupID      string                 `json:"group_id"`
	CustomFields []formdata.CustomField `json:"customFields"`
	Values       map[string]string      `json:"values"`
}

func (req *createRequest) toInput(uid uint) services.CreateInput {
	in := services.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		GroupID:      req.GroupID,
		CreatedBy:    uid,
		CustomFields: req.CustomFields,
		Values:       req.Values,
	}
	toggles := []schema.Toggle{
		{Name: "type", Enabled: req.Type != nil},
		{Name: "priority", Enabled: req.Priority != nil},
		{Name: "assigned_to", Enabled: req.AssignedTo != nil},
	}
	in.Predefined = toggles
	if req.Type != nil {
		in.Type = *req.Type
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		in.AssignedTo = *req.AssignedTo
	}
	return in
}

func parseCreateRequest(r *http.Request) (*createRequest, error) {
	var req createRequest
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(r.Form.Get("title"))
	req.Description = strings.TrimSpace(r.Form.Get("description"))
	req.Status = strings.TrimSpace(r.Form.Get("status"))
	req.GroupID = strings.TrimSpace(r.Form.Get("group_id"))
	for name, dst := range map[string]**string{"type": &req.Type, "priority": &req.Priority, "assigned_to": &req.AssignedTo} {
		if _, present := r.Form[name]; present {
			v := strings.TrimSpace(r.Form.Get(name))
			*dst = &v
		}
	}
	// The dynamic field builder serializes its state into a single JSON
	// form field; values for those fields arrive under their own names.
	if raw := r.Form.Get("custom_fields"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.CustomFields); err != nil {
			return nil, err
		}
	}
	req.Values = map[string]string{}
	for _, f := range req.CustomFields {
		if _, present := r.Form[f.Name]; present {
			req.Values[f.Name] = r.Form.Get(f.Name)
		}
	}
	return &req, nil
}

// Create: POST /tickets – JSON or form
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	req, err := parseCreateRequest(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	t, violations, err := h.Svc.Create(req.toInput(uid))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_ticket", nil)
		return
	}
	if !violations.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = view.Render(w, r, "ticket_form.html", map[string]any{"Errors": violations, "Form": req})
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, t)
		return
	}
	middleware.Flash(w, r, "ticket_created")
	http.Redirect(w, r, "/tickets", http.StatusSeeOther)
}

// New: GET /tickets/new – authoring form
func (h *TicketHandler) New(w http.ResponseWriter, r *http.Request) {
	_ = view.Render(w, r, "ticket_form.html", map[string]any{"Statuses": []string{models.StatusPending, models.StatusInProgress, models.StatusDone}})
}

// Get: GET /tickets/{id} – detail with rehydrated form definition
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	t, err := h.Svc.Get(id)
	if err != nil {
		h.notFoundOrError(w, r, err)
		return
	}
	doc := formdata.Rehydrate(h.Log, t.FormData)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"ticket": t, "form": doc})
		return
	}
	_ = view.Render(w, r, "ticket_detail.html", map[string]any{
		"Ticket":       t,
		"CustomFields": doc.CustomFields,
		"Values":       doc.Values,
		"Submitted":    doc.Submitted,
		"SubmittedBy":  doc.SubmittedBy,
	})
}

// Update: POST /tickets/update?id=...
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in services.UpdateInput
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		var req struct {
			Title        *string                `json:"title"`
			Description  *string                `json:"description"`
			Status       *string                `json:"status"`
			Type         *string                `json:"type"`
			Priority     *string                `json:"priority"`
			AssignedTo   *string                `json:"assigned_to"`
			GroupID      *string                `json:"group_id"`
			CustomFields []formdata.CustomField `json:"customFields"`
			Values       map[string]string      `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		in = services.UpdateInput{Title: req.Title, Description: req.Description, Status: req.Status,
			Type: req.Type, Priority: req.Priority, AssignedTo: req.AssignedTo, GroupID: req.GroupID,
			CustomFields: req.CustomFields, Values: req.Values}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		formPtr := func(name string) *string {
			if _, present := r.Form[name]; present {
				v := strings.TrimSpace(r.Form.Get(name))
				return &v
			}
			return nil
		}
		in = services.UpdateInput{Title: formPtr("title"), Description: formPtr("description"),
			Status: formPtr("status"), Type: formPtr("type"), Priority: formPtr("priority"),
			AssignedTo: formPtr("assigned_to"), GroupID: formPtr("group_id")}
		if raw := r.Form.Get("custom_fields"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.CustomFields); err != nil {
				httpx.JSONError(w, http.StatusBadRequest, "invalid_custom_fields", nil)
				return
			}
			in.Values = map[string]string{}
			for _, f := range in.CustomFields {
				if _, present := r.Form[f.Name]; present {
					in.Values[f.Name] = r.Form.Get(f.Name)
				}
			}
		}
	}
	t, violations, err := h.Svc.Update(id, uid, in)
	if err != nil {
		h.notFoundOrError(w, r, err)
		return
	}
	if !violations.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, t)
		return
	}
	middleware.Flash(w, r, "ticket_updated")
	http.Redirect(w, r, "/tickets", http.StatusSeeOther)
}

// Delete: POST /tickets/delete?id=...
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Svc.Delete(id, uid); err != nil {
		h.notFoundOrError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	middleware.Flash(w, r, "ticket_deleted")
	http.Redirect(w, r, "/tickets", http.StatusSeeOther)
}

// PDF: GET /tickets/pdf?id=...
func (h *TicketHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	t, err := h.Svc.Get(id)
	if err != nil {
		h.notFoundOrError(w, r, err)
		return
	}
	doc := formdata.Rehydrate(h.Log, t.FormData)
	data, genErr := pdf.InterventionPDF(BuildPDFData(t, doc))
	if genErr != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"intervention-"+t.ShortRef()+".pdf\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// BuildPDFData flattens a ticket and its rehydrated form into the exporter's
// input. Shared with the visitor-facing form handler.
func BuildPDFData(t *models.Ticket, doc formdata.Document) pdf.InterventionData {
	fields := make([]pdf.FieldValue, 0, len(doc.CustomFields))
	for _, f := range doc.CustomFields {
		fields = append(fields, pdf.FieldValue{Label: f.Label, Value: doc.Values[f.Name]})
	}
	data := pdf.InterventionData{
		ShortRef:    t.ShortRef(),
		Date:        t.CreatedAt.Format("02/01/2006"),
		Title:       t.Title,
		Type:        t.Type,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		Fields:      fields,
		Description: t.Description,
		Submitted:   doc.Submitted,
	}
	if doc.SubmittedBy != nil {
		data.Submitter = strings.TrimSpace(doc.SubmittedBy.FirstName + " " + doc.SubmittedBy.LastName)
		data.Company = doc.SubmittedBy.CompanyName
		data.SubmittedAt = doc.SubmittedBy.SubmittedAt.Format("02/01/2006")
	}
	return data
}

func (h *TicketHandler) notFoundOrError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotOwner) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if errors.Is(err, services.ErrTicketNotFound) {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = view.Render(w, r, "tickets.html", map[string]any{"Error": "Ticket introuvable"})
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}
