package memoryregistry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/pkg/io/device"
	"github.com/xpanvictor/interm/pkg/io/iotest"
	"github.com/xpanvictor/interm/pkg/io/registry"
)

func TestAttachRequiresDevice(t *testing.T) {
	reg := New()
	err := reg.AttachEndpoint(uuid.New(), uuid.New(), iotest.NewRecorder())
	if !errors.Is(err, registry.ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestDeviceEndpointLifecycle(t *testing.T) {
	reg := New()
	user, dev := uuid.New(), uuid.New()

	if err := reg.UpsertDevice(user, device.Device{DeviceID: dev}); err != nil {
		t.Fatalf("UpsertDevice failed: %v", err)
	}
	a, b := iotest.NewRecorder(), iotest.NewRecorder()
	for _, ep := range []device.Endpoint{a, b} {
		if err := reg.AttachEndpoint(user, dev, ep); err != nil {
			t.Fatalf("AttachEndpoint failed: %v", err)
		}
	}
	if got := len(reg.ListUserEndpoints(user)); got != 2 {
		t.Fatalf("Expected 2 endpoints, got %d", got)
	}

	// upsert keeps endpoints
	if err := reg.UpsertDevice(user, device.Device{DeviceID: dev, Caps: device.AllCaps}); err != nil {
		t.Fatal(err)
	}
	if got := len(reg.ListUserEndpoints(user)); got != 2 {
		t.Errorf("Upsert dropped endpoints, got %d", got)
	}

	id, err := reg.DetachEndpoint(user, dev, a)
	if err != nil || id != a.ID() {
		t.Errorf("DetachEndpoint returned %v, %v", id, err)
	}
	if _, err := reg.DetachEndpoint(user, dev, a); !errors.Is(err, registry.ErrEndpointNotFound) {
		t.Errorf("Expected ErrEndpointNotFound on second detach, got %v", err)
	}

	if err := reg.RemoveDevice(user, dev); err != nil {
		t.Fatalf("RemoveDevice failed: %v", err)
	}
	if b.IsAlive() {
		t.Error("Expected endpoints closed with their device")
	}
	if len(reg.ListUserDevices(user)) != 0 {
		t.Error("Device still listed after removal")
	}
}

func TestSelectEndpointWithMRU(t *testing.T) {
	reg := New()
	user, dev := uuid.New(), uuid.New()
	_ = reg.UpsertDevice(user, device.Device{DeviceID: dev})

	older, newer := iotest.NewRecorder(), iotest.NewRecorder()
	_ = reg.AttachEndpoint(user, dev, older)
	_ = reg.AttachEndpoint(user, dev, newer)
	older.Touch()
	time.Sleep(2 * time.Millisecond)
	newer.Touch()

	ep, ok := reg.SelectEndpointWithMRU(user)
	if !ok || ep.ID() != newer.ID() {
		t.Errorf("Expected most recent endpoint, got %v", ep)
	}

	_ = newer.Close()
	ep, ok = reg.SelectEndpointWithMRU(user)
	if !ok || ep.ID() != older.ID() {
		t.Errorf("Expected fallback to live endpoint, got %v", ep)
	}
}
