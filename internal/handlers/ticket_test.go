package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/interflow/auth"
	"github.com/diewo77/interflow/internal/db"
	"github.com/diewo77/interflow/internal/models"
	"github.com/diewo77/interflow/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func seedHandlerUser(t *testing.T, gdb *gorm.DB) models.User {
	t.Helper()
	u := models.User{Email: t.Name() + "@test", Password: "x", Prenom: "Admin", Nom: "User"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return u
}

func newTicketHandler(gdb *gorm.DB) *TicketHandler {
	return NewTicketHandler(gdb, services.NewTicketService(gdb, zerolog.Nop()), zerolog.Nop())
}

func createTicketJSON(t *testing.T, h *TicketHandler, uid uint, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tickets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), uid))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created
}

func TestTicketCreateAndListJSON(t *testing.T) {
	gdb := setupHandlerTestDB(t)
	u := seedHandlerUser(t, gdb)
	h := newTicketHandler(gdb)

	body := `{"title":"Panne serveur","description":"Le serveur de production ne répond plus.",
		"customFields":[{"id":"f1","type":"input","name":"serial","label":"Numéro de série","required":true}]}`
	created := createTicketJSON(t, h, u.ID, body)
	if created["Status"] != models.StatusPending {
		t.Fatalf("status: %#v", created["Status"])
	}

	listReq := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	listReq.Header.Set("Accept", "application/json")
	listW := httptest.NewRecorder()
	h.List(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("list expected 200 got %d", listW.Code)
	}
	var list struct {
		Items []models.Ticket `json:"items"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Total != 1 {
		t.Fatalf("list: %#v", list)
	}
}

func TestTicketCreateValidationJSON(t *testing.T) {
	gdb := setupHandlerTestDB(t)
	u := seedHandlerUser(t, gdb)
	h := newTicketHandler(gdb)

	body := `{"title":"ok","description":"court"}`
	req := httptest.NewRequest(http.MethodPost, "/tickets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), u.ID))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "La description doit contenir au moins 10 caractères") {
		t.Fatalf("missing violation message: %s", w.Body.String())
	}
}

func TestTicketGetJSON(t *testing.T) {
	gdb := setupHandlerTestDB(t)
	u := seedHandlerUser(t, gdb)
	h := newTicketHandler(gdb)

	created := createTicketJSON(t, h, u.ID,
		`{"title":"Panne","description":"Une description assez longue.","customFields":[{"id":"f1","type":"input","name":"serial","label":"Série"}]}`)
	id := created["ID"].(string)

	r := chi.NewRouter()
	r.Get("/tickets/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/tickets/"+id, nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get expected 200 got %d", w.Code)
	}
	var resp struct {
		Ticket models.Ticket `json:"ticket"`
		Form   struct {
			CustomFields []map[string]any `json:"customFields"`
		} `json:"form"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ticket.ID != id || len(resp.Form.CustomFields) != 1 {
		t.Fatalf("get response: %s", w.Body.String())
	}

	// Unknown identifier.
	req = httptest.NewRequest(http.MethodGet, "/tickets/00000000-0000-0000-0000-000000000000", nil)
	req.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestTicketUpdateAndDeleteJSON(t *testing.T) {
	gdb := setupHandlerTestDB(t)
	u := seedHandlerUser(t, gdb)
	h := newTicketHandler(gdb)

	created := createTicketJSON(t, h, u.ID, `{"title":"Panne","description":"Une description assez longue."}`)
	id := created["ID"].(string)

	upReq := httptest.NewRequest(http.MethodPost, "/tickets/update?id="+id, strings.NewReader(`{"title":"Titre corrigé"}`))
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("Accept", "application/json")
	upReq = upReq.WithContext(auth.WithUserID(upReq.Context(), u.ID))
	upW := httptest.NewRecorder()
	h.Update(upW, upReq)
	if upW.Code != http.StatusOK {
		t.Fatalf("update expected 200 got %d body=%s", upW.Code, upW.Body.String())
	}
	var tk models.Ticket
	if err := gdb.Where("id = ?", id).First(&tk).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if tk.Title != "Titre corrigé" {
		t.Fatalf("title: %q", tk.Title)
	}

	delReq := httptest.NewRequest(http.MethodPost, "/tickets/delete?id="+id, nil)
	delReq.Header.Set("Accept", "application/json")
	delReq = delReq.WithContext(auth.WithUserID(delReq.Context(), u.ID))
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete expected 200 got %d", delW.Code)
	}
	if err := gdb.Where("id = ?", id).First(&tk).Error; err == nil {
		t.Fatal("ticket still present after delete")
	}
}

func TestTicketMutationForbiddenForNonOwner(t *testing.T) {
	gdb := setupHandlerTestDB(t)
	owner := seedHandlerUser(t, gdb)
	other := models.User{Email: "autre@test", Password: "x", Prenom: "Autre", Nom: "User"}
	if err := gdb.Create(&other).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	h := newTicketHandler(gdb)

	created := createTicketJSON(t, h, owner.ID, `{"title":"Panne","description":"Une description assez longue."}`)
	id := created["ID"].(string)

	upReq := httptest.NewRequest(http.MethodPost, "/tickets/update?id="+id, strings.NewReader(`{"title":"Détourné"}`))
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("Accept", "application/json")
	upReq = upReq.WithContext(auth.WithUserID(upReq.Context(), other.ID))
	upW := httptest.NewRecorder()
	h.Update(upW, upReq)
	if upW.Code != http.StatusForbidden {
		t.Fatalf("non-owner update expected 403 got %d body=%s", upW.Code, upW.Body.String())
	}

	delReq := httptest.NewRequest(http.MethodPost, "/tickets/delete?id="+id, nil)
	delReq.Header.Set("Accept", "application/json")
	delReq = delReq.WithContext(auth.WithUserID(delReq.Context(), other.ID))
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete expected 403 got %d", delW.Code)
	}

	var tk models.Ticket
	if err := gdb.Where("id = ?", id).First(&tk).Error; err != nil {
		t.Fatalf("ticket gone after forbidden mutation: %v", err)
	}
	if tk.Title != "Panne" {
		t.Fatalf("title changed by non-owner: %q", tk.Title)
	}
}

func TestTicketPDF(t *testing.T) {
	gdb := setupHandlerTestDB(t)
	u := seedHandlerUser(t, gdb)
	h := newTicketHandler(gdb)

	created := createTicketJSON(t, h, u.ID,
		`{"title":"Panne","description":"Une description assez longue.","customFields":[{"id":"f1","type":"input","name":"serial","label":"Série"}]}`)
	id := created["ID"].(string)

	req := httptest.NewRequest(http.MethodGet, "/tickets/pdf?id="+id, nil)
	w := httptest.NewRecorder()
	h.PDF(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf expected 200 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: %q", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "intervention-"+id[:8]+".pdf") {
		t.Fatalf("filename: %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatal("body is not a PDF document")
	}
}
