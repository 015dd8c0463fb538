package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/device"
	"github.com/xpanvictor/interm/pkg/io/registry"
)

// Run attaches a terminal endpoint for userID and blocks until the user
// quits or ctx ends.
func Run(ctx context.Context, cmds Commands, reg registry.Registry, userID uuid.UUID, logger *Logger.Logger) error {
	p := tea.NewProgram(New(cmds), tea.WithAltScreen(), tea.WithContext(ctx))

	ep := NewEndpoint(p)
	deviceID := uuid.New()
	if err := reg.UpsertDevice(userID, device.Device{
		UserID:     userID,
		DeviceID:   deviceID,
		Caps:       ep.Caps(),
		LastActive: time.Now(),
		Endpoints:  make(map[device.EndpointID]device.Endpoint),
	}); err != nil {
		return fmt.Errorf("register tui device: %w", err)
	}
	if err := reg.AttachEndpoint(userID, deviceID, ep); err != nil {
		return fmt.Errorf("attach tui endpoint: %w", err)
	}
	defer func() {
		_ = ep.Close()
		if err := reg.RemoveDevice(userID, deviceID); err != nil {
			logger.Debugf("tui device already removed: %v", err)
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
