package io

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/registry"
)

type Publisher struct {
	reg    registry.Registry
	logger *Logger.Logger
}

func New(reg registry.Registry, logger *Logger.Logger) *Publisher {
	return &Publisher{reg: reg, logger: logger}
}

// SendEvent fans an event out to every live endpoint of the user that
// accepts it. Endpoints that fail a write are closed and detached.
func (p *Publisher) SendEvent(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	name string,
	payload any,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, d := range p.reg.ListUserDevices(userID) {
		for _, ep := range d.Endpoints {
			if !ep.Caps().Accepts(name) {
				continue
			}
			if err := ep.SendEvent(sessionID, name, payload); err != nil {
				errs = append(errs, fmt.Errorf("endpoint %s/%s: %w", ep.Transport(), uuid.UUID(ep.ID()), err))
				_ = ep.Close()
				_, _ = p.reg.DetachEndpoint(userID, d.DeviceID, ep)
				continue
			}
			ep.Touch()
		}
	}
	return errors.Join(errs...)
}

// SessionEmitter binds a publisher to one user and the current recording
// session.
type SessionEmitter struct {
	pub    *Publisher
	userID uuid.UUID

	mu        sync.RWMutex
	sessionID uuid.UUID
}

func (p *Publisher) Bind(userID uuid.UUID) *SessionEmitter {
	return &SessionEmitter{pub: p, userID: userID}
}

func (s *SessionEmitter) SetSession(id uuid.UUID) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *SessionEmitter) Session() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Emit implements Emitter. Delivery failures are logged, never returned.
func (s *SessionEmitter) Emit(ctx context.Context, name string, payload any) {
	if err := s.pub.SendEvent(ctx, s.userID, s.Session(), name, payload); err != nil {
		s.pub.logger.Warnf("publisher: %s not delivered: %v", name, err)
	}
}
