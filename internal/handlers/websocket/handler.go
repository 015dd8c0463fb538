package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xpanvictor/interm/internal/handlers"
	"github.com/xpanvictor/interm/pkg/Logger"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/io/device"
	wsdevice "github.com/xpanvictor/interm/pkg/io/device/websocket"
	"github.com/xpanvictor/interm/pkg/io/registry"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// WebSocketHandler attaches browser clients to the device registry and
// runs the commands they send.
type WebSocketHandler struct {
	logger   *Logger.Logger
	registry registry.Registry
	userID   uuid.UUID
	svc      handlers.SessionService
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(logger *Logger.Logger, reg registry.Registry, userID uuid.UUID, svc handlers.SessionService) *WebSocketHandler {
	return &WebSocketHandler{
		logger:   logger.Named("ws"),
		registry: reg,
		userID:   userID,
		svc:      svc,
		upgrader: websocket.Upgrader{
			// local tool, the UI may be served from a file:// origin
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *WebSocketHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the client goes away.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	caps := ParseCaps(c.Query("caps"))
	ep := wsdevice.New(conn, caps)
	deviceID := uuid.New()

	if err := h.registry.UpsertDevice(h.userID, device.Device{
		UserID:     h.userID,
		DeviceID:   deviceID,
		Caps:       caps,
		LastActive: time.Now(),
		Endpoints:  make(map[device.EndpointID]device.Endpoint),
	}); err != nil {
		h.logger.Errorf("Failed to register device: %v", err)
		ep.Close()
		return
	}
	if err := h.registry.AttachEndpoint(h.userID, deviceID, ep); err != nil {
		h.logger.Errorf("Failed to register endpoint: %v", err)
		ep.Close()
		return
	}
	defer func() {
		if err := h.registry.RemoveDevice(h.userID, deviceID); err != nil {
			h.logger.Debugf("device already gone: %v", err)
		}
		ep.Close()
	}()

	h.logger.Infof("client connected (device %s, caps %+v)", deviceID, caps)
	if err := ep.SendEvent(uuid.Nil, xio.EventReady, xio.ReadyPayload{IsReady: true}); err != nil {
		h.logger.Warnf("ready frame failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.keepAlive(ctx, ep)
	h.readLoop(ctx, conn, ep)
	h.logger.Infof("client disconnected (device %s)", deviceID)
}

func (h *WebSocketHandler) keepAlive(ctx context.Context, ep device.Endpoint) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ep.IsAlive() {
				return
			}
		}
	}
}

func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, ep device.Endpoint) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		ep.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warnf("read error: %v", err)
			}
			return
		}
		ep.Touch()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if cmd.Type == CommandPing {
			if err := ep.SendEvent(uuid.Nil, EventPong, nil); err != nil {
				return
			}
			continue
		}
		// model calls take seconds, keep reading meanwhile
		go h.dispatch(ctx, cmd)
	}
}

// dispatch runs one command. Outcomes reach clients as events, so errors
// are only logged here.
func (h *WebSocketHandler) dispatch(ctx context.Context, cmd Command) {
	var err error
	switch cmd.Type {
	case CommandStartRecording:
		err = h.svc.StartRecording(ctx)
	case CommandStopRecording:
		err = h.svc.StopRecording(ctx)
	case CommandRequestSuggestion:
		var d TextData
		if err = decode(cmd.Data, &d); err == nil {
			_, err = h.svc.RequestSuggestion(ctx, d.Text)
		}
	case CommandElaborate:
		var d TextData
		if err = decode(cmd.Data, &d); err == nil {
			_, err = h.svc.Elaborate(ctx, d.Text)
		}
	case CommandSetContext:
		var d TextData
		if err = decode(cmd.Data, &d); err == nil {
			err = h.svc.SetContext(ctx, d.Text, !d.Raw)
		}
	case CommandClearContext:
		err = h.svc.ClearContext(ctx)
	case CommandScreenshot:
		var d PathData
		if err = decode(cmd.Data, &d); err == nil {
			_, err = h.svc.ProcessScreenshot(ctx, d.Path)
		}
	default:
		h.logger.Warnf("unknown command %q", cmd.Type)
		return
	}
	if err != nil {
		h.logger.Warnf("command %s failed: %v", cmd.Type, err)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
