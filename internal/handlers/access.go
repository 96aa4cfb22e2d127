package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/interflow/auth"
	"github.com/diewo77/interflow/httpx"
	"github.com/diewo77/interflow/internal/formdata"
	"github.com/diewo77/interflow/internal/middleware"
	"github.com/diewo77/interflow/internal/models"
	"github.com/diewo77/interflow/internal/services"
	"github.com/diewo77/interflow/pdf"
	"github.com/diewo77/interflow/view"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func pathID(r *http.Request) string { return chi.URLParam(r, "id") }

// AccessHandler implements the passwordless visitor flow: identify against a
// partial ticket number, then view and fill that ticket's form.
type AccessHandler struct {
	Tickets *services.TicketService
	Grants  *services.AccessService
	Log     zerolog.Logger
}

func NewAccessHandler(tickets *services.TicketService, grants *services.AccessService, log zerolog.Logger) *AccessHandler {
	return &AccessHandler{Tickets: tickets, Grants: grants, Log: log}
}

// Entry: GET /intervention – the access-entry screen.
func (h *AccessHandler) Entry(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if msg, ok := middleware.PopFlash(w, r); ok {
		data["Flash"] = msg
	}
	_ = view.Render(w, r, "intervention_access.html", data)
}

type accessRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	CompanyName  string `json:"companyName"`
	TicketNumber string `json:"ticketNumber"`
}

// Lookup: POST /intervention – match a ticket by partial identifier and
// issue a grant. "No match", "too short" and "ambiguous" are deliberately
// indistinguishable to the visitor.
func (h *AccessHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		req.FirstName = strings.TrimSpace(r.Form.Get("firstName"))
		req.LastName = strings.TrimSpace(r.Form.Get("lastName"))
		req.CompanyName = strings.TrimSpace(r.Form.Get("companyName"))
		req.TicketNumber = strings.TrimSpace(r.Form.Get("ticketNumber"))
	}
	if req.FirstName == "" || req.LastName == "" || req.CompanyName == "" || req.TicketNumber == "" {
		h.denied(w, r, "Veuillez vérifier les informations saisies.")
		return
	}
	t, err := h.Tickets.FindByPartialRef(req.TicketNumber)
	if err != nil {
		if errors.Is(err, services.ErrRefTooShort) || errors.Is(err, services.ErrTicketNotFound) {
			h.denied(w, r, "Veuillez vérifier les informations saisies.")
			return
		}
		h.backendError(w, r)
		return
	}
	grant, err := h.Grants.Grant(t, req.FirstName, req.LastName, req.CompanyName)
	if err != nil {
		h.backendError(w, r)
		return
	}
	auth.CreateGrantCookie(w, grant.Token, services.GrantTTL)
	// First access moves a pending ticket into "En cours". The lookup and
	// the status write are two independent calls, last write wins.
	if err := h.Tickets.RecordAccess(t); err != nil {
		h.Log.Warn().Err(err).Str("ticket", t.ID).Msg("transition de statut impossible")
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"ticketId": t.ID})
		return
	}
	http.Redirect(w, r, "/intervention/form/"+t.ID, http.StatusSeeOther)
}

func (h *AccessHandler) denied(w http.ResponseWriter, r *http.Request, detail string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusNotFound, "form_not_found", nil)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_ = view.Render(w, r, "intervention_access.html", map[string]any{
		"Error":       "Formulaire non trouvé",
		"ErrorDetail": detail,
	})
}

func (h *AccessHandler) backendError(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = view.Render(w, r, "intervention_access.html", map[string]any{
		"Error": "Une erreur est survenue, veuillez réessayer plus tard",
	})
}

// guard resolves the grant cookie and checks it matches the routed ticket.
func (h *AccessHandler) guard(w http.ResponseWriter, r *http.Request) (*models.AccessGrant, bool) {
	token, ok := auth.ParseGrantCookie(r)
	if !ok {
		h.redirectDenied(w, r)
		return nil, false
	}
	grant, err := h.Grants.Verify(token)
	if err != nil {
		h.redirectDenied(w, r)
		return nil, false
	}
	if grant.TicketID != pathID(r) {
		h.redirectDenied(w, r)
		return nil, false
	}
	return grant, true
}

func (h *AccessHandler) redirectDenied(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusForbidden, "access_denied", nil)
		return
	}
	middleware.Flash(w, r, "access_denied")
	http.Redirect(w, r, "/intervention", http.StatusSeeOther)
}

// FormView: GET /intervention/form/{id} – the rehydrated intervention form.
func (h *AccessHandler) FormView(w http.ResponseWriter, r *http.Request) {
	grant, ok := h.guard(w, r)
	if !ok {
		return
	}
	t, err := h.Tickets.Get(grant.TicketID)
	if err != nil {
		h.redirectDenied(w, r)
		return
	}
	doc := formdata.Rehydrate(h.Log, t.FormData)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"ticket": t, "form": doc, "accessInfo": map[string]string{
			"firstName": grant.FirstName, "lastName": grant.LastName, "companyName": grant.CompanyName,
		}})
		return
	}
	data := map[string]any{
		"Ticket":       t,
		"CustomFields": doc.CustomFields,
		"Values":       doc.Values,
		"Submitted":    doc.Submitted,
		"Grant":        grant,
	}
	if msg, ok := middleware.PopFlash(w, r); ok {
		data["Flash"] = msg
	}
	_ = view.Render(w, r, "intervention_form.html", data)
}

// FormSubmit: POST /intervention/form/{id} – record values, mark submitted,
// close the ticket.
func (h *AccessHandler) FormSubmit(w http.ResponseWriter, r *http.Request) {
	grant, ok := h.guard(w, r)
	if !ok {
		return
	}
	values := map[string]string{}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Values map[string]string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		values = req.Values
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		for name := range r.Form {
			values[name] = r.Form.Get(name)
		}
	}
	t, violations, err := h.Tickets.Submit(grant.TicketID, values, grant)
	if err != nil {
		h.backendError(w, r)
		return
	}
	if !violations.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
			return
		}
		// Re-render the form with the visitor's in-flight values.
		cur, gerr := h.Tickets.Get(grant.TicketID)
		if gerr != nil {
			h.backendError(w, r)
			return
		}
		doc := formdata.Rehydrate(h.Log, cur.FormData)
		w.WriteHeader(http.StatusBadRequest)
		_ = view.Render(w, r, "intervention_form.html", map[string]any{
			"Ticket": cur, "CustomFields": doc.CustomFields, "Values": values,
			"Errors": violations, "Grant": grant,
		})
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, t)
		return
	}
	middleware.Flash(w, r, "form_submitted")
	http.Redirect(w, r, "/intervention/form/"+t.ID, http.StatusSeeOther)
}

// FormPDF: GET /intervention/form/{id}/pdf – visitor-side export.
func (h *AccessHandler) FormPDF(w http.ResponseWriter, r *http.Request) {
	grant, ok := h.guard(w, r)
	if !ok {
		return
	}
	t, err := h.Tickets.Get(grant.TicketID)
	if err != nil {
		h.redirectDenied(w, r)
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
