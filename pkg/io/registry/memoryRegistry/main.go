package memoryregistry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/pkg/io/device"
	"github.com/xpanvictor/interm/pkg/io/registry"
)

type mmrRegistry struct {
	mu    sync.RWMutex
	dvMap map[uuid.UUID]map[uuid.UUID]*device.Device
}

func (m *mmrRegistry) lookup(userID, deviceID uuid.UUID) (*device.Device, error) {
	if d := m.dvMap[userID][deviceID]; d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", registry.ErrDeviceNotFound, deviceID)
}

// AttachEndpoint implements registry.Registry.
func (m *mmrRegistry) AttachEndpoint(userID uuid.UUID, deviceID uuid.UUID, ep device.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookup(userID, deviceID)
	if err != nil {
		return fmt.Errorf("couldn't attach endpoint: %w", err)
	}
	if d.Endpoints == nil {
		d.Endpoints = make(map[device.EndpointID]device.Endpoint)
	}
	// can reinstantiate anyways
	d.Endpoints[ep.ID()] = ep
	d.LastActive = time.Now()
	return nil
}

// DetachEndpoint implements registry.Registry.
func (m *mmrRegistry) DetachEndpoint(userID uuid.UUID, deviceID uuid.UUID, ep device.Endpoint) (device.EndpointID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookup(userID, deviceID)
	if err != nil {
		return device.EndpointID{}, err
	}
	if _, ok := d.Endpoints[ep.ID()]; !ok {
		return device.EndpointID{}, registry.ErrEndpointNotFound
	}
	delete(d.Endpoints, ep.ID())
	return ep.ID(), nil
}

// ListUserDevices implements registry.Registry.
func (m *mmrRegistry) ListUserDevices(userID uuid.UUID) []device.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]device.Device, 0, len(m.dvMap[userID]))
	for _, d := range m.dvMap[userID] {
		cp := *d
		cp.Endpoints = make(map[device.EndpointID]device.Endpoint, len(d.Endpoints))
		for id, ep := range d.Endpoints {
			cp.Endpoints[id] = ep
		}
		out = append(out, cp)
	}
	return out
}

// ListUserEndpoints implements registry.Registry.
func (m *mmrRegistry) ListUserEndpoints(userID uuid.UUID) []device.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []device.Endpoint
	for _, d := range m.dvMap[userID] {
		for _, ep := range d.Endpoints {
			out = append(out, ep)
		}
	}
	return out
}

// RemoveDevice implements registry.Registry. Endpoints of the device are
// closed.
func (m *mmrRegistry) RemoveDevice(userID uuid.UUID, deviceID uuid.UUID) error {
	m.mu.Lock()
	d, err := m.lookup(userID, deviceID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.dvMap[userID], deviceID)
	if len(m.dvMap[userID]) == 0 {
		delete(m.dvMap, userID)
	}
	m.mu.Unlock()

	for _, ep := range d.Endpoints {
		_ = ep.Close()
	}
	return nil
}

// SelectEndpointWithMRU implements registry.Registry. It returns the most
// recently active live endpoint.
func (m *mmrRegistry) SelectEndpointWithMRU(userID uuid.UUID) (device.Endpoint, bool) {
	eps := m.ListUserEndpoints(userID)
	sort.Slice(eps, func(i, j int) bool {
		return eps[i].LastActive().After(eps[j].LastActive())
	})
	for _, ep := range eps {
		if ep.IsAlive() {
			return ep, true
		}
	}
	return nil, false
}

// UpsertDevice implements registry.Registry. Endpoints already attached
// survive an update.
func (m *mmrRegistry) UpsertDevice(userID uuid.UUID, d device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dvMap[userID] == nil {
		m.dvMap[userID] = make(map[uuid.UUID]*device.Device)
	}
	if prev := m.dvMap[userID][d.DeviceID]; prev != nil && d.Endpoints == nil {
		d.Endpoints = prev.Endpoints
	}
	d.UserID = userID
	m.dvMap[userID][d.DeviceID] = &d
	return nil
}

func New() registry.Registry {
	return &mmrRegistry{
		dvMap: make(map[uuid.UUID]map[uuid.UUID]*device.Device, 0),
	}
}
