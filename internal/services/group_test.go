package services

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestGroupCreate(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewGroupService(gdb)

	g, err := svc.Create("", "Maintenance serveurs")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(g.ID) != 8 {
		t.Fatalf("generated code must be 8 chars, got %q", g.ID)
	}

	// User-supplied code is uppercased.
	g2, err := svc.Create("reseaux1", "Réseaux")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g2.ID != "RESEAUX1" {
		t.Fatalf("code not normalized: %q", g2.ID)
	}

	// Taken code is refused.
	if _, err := svc.Create("RESEAUX1", "Autre"); !errors.Is(err, ErrGroupIDTaken) {
		t.Fatalf("expected ErrGroupIDTaken, got %v", err)
	}
}

func TestGroupListCountsTickets(t *testing.T) {
	gdb := setupTestDB(t)
	u := seedUser(t, gdb)
	groups := NewGroupService(gdb)
	tickets := NewTicketService(gdb, zerolog.Nop())

	g, err := groups.Create("MAINTSRV", "Maintenance")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	in := validCreateInput(u.ID)
	in.GroupID = g.ID
	if _, _, err := tickets.Create(in); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	list, err := groups.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].TicketCount != 1 {
		t.Fatalf("list: %#v", list)
	}
}

func TestGroupRename(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewGroupService(gdb)

	g, _ := svc.Create("MAINTSRV", "Maintenance")
	renamed, err := svc.Rename(g.ID, "Maintenance serveurs")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Maintenance serveurs" {
		t.Fatalf("name: %q", renamed.Name)
	}
	if _, err := svc.Rename("INCONNU1", "x"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestGroupDeleteDetachesTickets(t *testing.T) {
	gdb := setupTestDB(t)
	u := seedUser(t, gdb)
	groups := NewGroupService(gdb)
	tickets := NewTicketService(gdb, zerolog.Nop())

	g, _ := groups.Create("MAINTSRV", "Maintenance")
	in := validCreateInput(u.ID)
	in.GroupID = g.ID
	tk, _, err := tickets.Create(in)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if err := groups.Delete(g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reloaded, err := tickets.Get(tk.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if reloaded.GroupID != "" {
		t.Fatalf("ticket kept dangling group reference: %q", reloaded.GroupID)
	}
	if err := groups.Delete(g.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}
