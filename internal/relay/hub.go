package relay

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Hub is the event relay: it owns the room and the registry and is the
// only goroutine that touches them. Every inbound event is processed to
// completion before the next, so room mutations need no locking.
type Hub struct {
	registry *Registry
	room     *Room

	// clients maps connection IDs to their live client objects.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan *Event

	logger *slog.Logger
}

// NewHub creates a hub around an explicitly constructed room and
// registry so tests can run independent rooms side by side.
func NewHub(room *Room, registry *Registry, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry:   registry,
		room:       room,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Event),
		logger:     logger,
	}
}

// HandleConn attaches an upgraded websocket connection to the hub and
// starts its read and write pumps.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	client := newClient(h, conn)
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case ev := <-h.inbound:
			h.handleEvent(ev)
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c.id] = c
	h.registry.Register(c.id)
	h.logger.Info("client registered", slog.String("conn", c.id))
}

// handleUnregister runs the disconnect path exactly once per
// connection: a client already removed (displaced, or dropped as a slow
// consumer) is skipped so no duplicate user-disconnected goes out.
func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)

	role, remaining := h.room.Leave(c.id)
	h.registry.Unregister(c.id)
	h.logger.Info("client unregistered", slog.String("conn", c.id), slog.String("role", role))

	if role != "" {
		ev := newEvent(EventUserDisconnected, DisconnectedPayload{ConnectionID: c.id, Role: role})
		for _, connID := range remaining {
			h.deliverTo(connID, ev)
		}
	}

	close(c.send)
}

func (h *Hub) handleEvent(ev *Event) {
	c := ev.client
	switch ev.Type {
	case EventJoinRoom:
		h.handleJoin(c, ev)
	case EventLocationUpdate:
		h.handleLocation(c, ev)
	case EventTrackingStarted:
		h.handleTracking(c, ev)
	default:
		h.logger.Warn("unknown event type", slog.String("conn", c.id), slog.String("type", ev.Type))
		h.sendError(c, CodeUnknownEvent, "unknown event type: "+ev.Type)
	}
}

func (h *Hub) handleJoin(c *Client, ev *Event) {
	p, err := decodeJoin(ev.Payload)
	if err != nil {
		h.sendError(c, CodeInvalidPayload, "join-room payload is malformed")
		return
	}
	oldRole := h.registry.RoleOf(c.id)
	if err := h.registry.ClaimRole(c.id, p.Role); err != nil {
		h.logger.Warn("join rejected", slog.String("conn", c.id), slog.String("role", p.Role))
		h.sendError(c, CodeInvalidRole, "unrecognized role: "+p.Role)
		return
	}

	// Switching roles on a live connection is a leave followed by a
	// join, so the partner sees the old role go offline.
	if oldRole != "" && oldRole != p.Role {
		if leftRole, remaining := h.room.Leave(c.id); leftRole != "" {
			gone := newEvent(EventUserDisconnected, DisconnectedPayload{ConnectionID: c.id, Role: leftRole})
			for _, connID := range remaining {
				h.deliverTo(connID, gone)
			}
		}
	}

	others, displaced := h.room.Join(p.Role, c.id)
	h.logger.Info("joined room",
		slog.String("room", h.room.Name()),
		slog.String("role", p.Role),
		slog.String("conn", c.id))

	// Last join wins: the displaced connection is told its role was
	// reclaimed and then force-disconnected. It leaves the room here,
	// so its eventual transport close fans out nothing.
	if displaced != "" {
		h.evict(displaced, p.Role)
	}

	connected := newEvent(EventUserConnected, ConnectedPayload{Role: p.Role, ConnectionID: c.id})
	for _, connID := range others {
		h.deliverTo(connID, connected)
	}

	// Presence sync: tell the joiner about the occupant already there.
	if partnerConn, ok := h.room.PartnerOf(p.Role); ok {
		partnerRole, _ := h.registry.roles.Partner(p.Role)
		h.deliverTo(c.id, newEvent(EventUserConnected, ConnectedPayload{Role: partnerRole, ConnectionID: partnerConn}))
	}
}

func (h *Hub) handleLocation(c *Client, ev *Event) {
	role := h.registry.RoleOf(c.id)
	if role == "" {
		h.sendError(c, CodeNotJoined, "join the room before sending location updates")
		return
	}
	loc, err := decodeLocation(ev.Payload)
	if err != nil {
		h.sendError(c, CodeInvalidPayload, "location-update payload is malformed")
		return
	}

	out := newEvent(EventPartnerLocation, PartnerLocationPayload{Role: role, Location: loc})
	for _, connID := range h.room.BroadcastTargets(c.id) {
		h.deliverTo(connID, out)
	}
}

func (h *Hub) handleTracking(c *Client, ev *Event) {
	role := h.registry.RoleOf(c.id)
	if role == "" {
		h.sendError(c, CodeNotJoined, "join the room before sending tracking status")
		return
	}
	p, err := decodeTracking(ev.Payload)
	if err != nil {
		h.sendError(c, CodeInvalidPayload, "tracking-started payload is malformed")
		return
	}

	out := newEvent(EventPartnerTracking, PartnerTrackingPayload{Role: role, Status: p.Status})
	for _, connID := range h.room.BroadcastTargets(c.id) {
		h.deliverTo(connID, out)
	}
}

// evict removes a displaced connection from the hub's books and closes
// its send channel, which ends its write pump and so the socket.
func (h *Hub) evict(connID, role string) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	h.registry.Unregister(connID)
	h.logger.Info("evicted displaced connection", slog.String("conn", connID), slog.String("role", role))

	select {
	case c.send <- newEvent(EventRoleReplaced, ConnectedPayload{Role: role, ConnectionID: connID}):
	default:
	}
	close(c.send)
}

// deliverTo enqueues an event for a connection without blocking the
// hub. A client whose buffer is full is treated as gone.
func (h *Hub) deliverTo(connID string, ev *Event) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- ev:
	default:
		h.logger.Warn("dropping slow client", slog.String("conn", connID))
		h.handleUnregister(c)
	}
}

func (h *Hub) sendError(c *Client, code, message string) {
	select {
	case c.send <- newEvent(EventError, ErrorPayload{Code: code, Message: message}):
	default:
	}
}
