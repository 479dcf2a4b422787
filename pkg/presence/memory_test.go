package presence

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	any, err := store.AnySession(ctx, 1)
	if err != nil {
		t.Fatalf("AnySession: %v", err)
	}
	if any {
		t.Error("fresh store should have no sessions")
	}

	t0 := time.Now().UTC()
	if err := store.InsertSession(ctx, 1, Session{SessionID: "aaa", OnlineSince: t0, Device: DeviceDesktop}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if err := store.InsertSession(ctx, 1, Session{SessionID: "bbb", OnlineSince: t0.Add(time.Second), Device: DeviceMobile}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	first, err := store.FirstSession(ctx, 1)
	if err != nil {
		t.Fatalf("FirstSession: %v", err)
	}
	if first == nil || first.SessionID != "aaa" {
		t.Errorf("FirstSession: got %+v, want session aaa", first)
	}

	devices, err := store.Devices(ctx, 1)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("Devices: got %v", devices)
	}

	if err := store.RemoveSession(ctx, 1, "aaa"); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	first, err = store.FirstSession(ctx, 1)
	if err != nil {
		t.Fatalf("FirstSession: %v", err)
	}
	if first == nil || first.SessionID != "bbb" {
		t.Errorf("after remove: got %+v, want session bbb", first)
	}

	if err := store.RemoveSession(ctx, 1, "bbb"); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	any, err = store.AnySession(ctx, 1)
	if err != nil {
		t.Fatalf("AnySession: %v", err)
	}
	if any {
		t.Error("all sessions removed, AnySession should be false")
	}
}

func TestMemoryStoreDevicesDeduplicated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.InsertSession(ctx, 1, Session{SessionID: "a", Device: DeviceWeb})
	store.InsertSession(ctx, 1, Session{SessionID: "b", Device: DeviceWeb})

	devices, err := store.Devices(ctx, 1)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 || devices[0] != DeviceWeb {
		t.Errorf("got %v, want [web]", devices)
	}
}

func TestMemoryStoreStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	status, err := store.GetStatus(ctx, 1)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != StatusOffline {
		t.Errorf("unset status: got %q, want offline", status)
	}

	if err := store.SetStatus(ctx, 1, StatusDND); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	status, _ = store.GetStatus(ctx, 1)
	if status != StatusDND {
		t.Errorf("got %q, want dnd", status)
	}

	// Going offline deletes the key, so the default applies again.
	if err := store.SetStatus(ctx, 1, StatusOffline); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	status, _ = store.GetStatus(ctx, 1)
	if status != StatusOffline {
		t.Errorf("got %q, want offline", status)
	}
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.InsertSession(ctx, 1, Session{SessionID: "a", Device: DeviceWeb})
	store.SetStatus(ctx, 1, StatusOnline)

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	any, _ := store.AnySession(ctx, 1)
	if any {
		t.Error("sessions should be gone after reset")
	}
	status, _ := store.GetStatus(ctx, 1)
	if status != StatusOffline {
		t.Errorf("status after reset: got %q", status)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"online", "idle", "dnd", "offline"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q): %v", s, err)
		}
	}
	if _, err := ParseStatus("away"); err == nil {
		t.Error("ParseStatus(away): expected an error")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Error("ParseStatus(empty): expected an error")
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.InsertSession(ctx, 7, Session{SessionID: "a", Device: DeviceDesktop})
	store.InsertSession(ctx, 7, Session{SessionID: "b", Device: DeviceMobile})
	store.SetStatus(ctx, 7, StatusIdle)

	snap, err := Snapshot(ctx, store, 7)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.UserID != 7 {
		t.Errorf("UserID: got %d", snap.UserID)
	}
	if snap.Status != "idle" {
		t.Errorf("Status: got %q", snap.Status)
	}
	if len(snap.Devices) != 2 {
		t.Errorf("Devices: got %v", snap.Devices)
	}
}
