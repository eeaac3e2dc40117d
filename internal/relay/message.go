package relay

import (
	"encoding/json"
	"fmt"
)

// Client-to-server event types.
const (
	EventJoinRoom        = "join-room"
	EventLocationUpdate  = "location-update"
	EventTrackingStarted = "tracking-started"
)

// Server-to-client event types.
const (
	EventUserConnected    = "user-connected"
	EventPartnerLocation  = "partner-location"
	EventPartnerTracking  = "partner-tracking"
	EventUserDisconnected = "user-disconnected"
	EventRoleReplaced     = "role-replaced"
	EventError            = "error"
)

// Event is the envelope for all websocket messages in both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the client that sent the event.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}

// JoinPayload is sent by a client claiming one of the two roles.
type JoinPayload struct {
	Role string `json:"role"`
}

// Location is a single geolocation sample. The timestamp is an opaque
// ISO-8601 string produced by the sender and forwarded verbatim.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// TrackingPayload carries a client's tracking on/off switch.
type TrackingPayload struct {
	Status bool `json:"status"`
}

// ConnectedPayload notifies the other occupant that a role came online.
type ConnectedPayload struct {
	Role         string `json:"role"`
	ConnectionID string `json:"connectionId"`
}

// PartnerLocationPayload forwards a location sample to the partner.
type PartnerLocationPayload struct {
	Role     string   `json:"role"`
	Location Location `json:"location"`
}

// PartnerTrackingPayload forwards the tracking switch to the partner.
type PartnerTrackingPayload struct {
	Role   string `json:"role"`
	Status bool   `json:"status"`
}

// DisconnectedPayload notifies the remaining occupant that a role went offline.
type DisconnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	Role         string `json:"role,omitempty"`
}

// ErrorPayload is the acknowledgment sent back for a rejected event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newEvent builds an outbound event, marshaling the payload.
func newEvent(eventType string, payload any) *Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		// All payload types above marshal unconditionally.
		panic(fmt.Sprintf("relay: marshal %s payload: %v", eventType, err))
	}
	return &Event{Type: eventType, Payload: raw}
}

// decodeJoin parses a join-room payload, failing closed on anything
// that is not a well-formed {role} object.
func decodeJoin(raw json.RawMessage) (JoinPayload, error) {
	var p JoinPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return JoinPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Role == "" {
		return JoinPayload{}, fmt.Errorf("%w: missing role", ErrInvalidPayload)
	}
	return p, nil
}

// locationWire uses pointers so that absent coordinates are
// distinguishable from a legitimate 0,0 sample.
type locationWire struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp string   `json:"timestamp"`
}

// decodeLocation parses a location-update payload, failing closed when
// either coordinate is absent.
func decodeLocation(raw json.RawMessage) (Location, error) {
	var w locationWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if w.Latitude == nil || w.Longitude == nil {
		return Location{}, fmt.Errorf("%w: missing coordinates", ErrInvalidPayload)
	}
	return Location{Latitude: *w.Latitude, Longitude: *w.Longitude, Timestamp: w.Timestamp}, nil
}

// decodeTracking parses a tracking-started payload. The status flag is
// required; a bare {} is rejected rather than defaulting to false.
func decodeTracking(raw json.RawMessage) (TrackingPayload, error) {
	var w struct {
		Status *bool `json:"status"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return TrackingPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if w.Status == nil {
		return TrackingPayload{}, fmt.Errorf("%w: missing status", ErrInvalidPayload)
	}
	return TrackingPayload{Status: *w.Status}, nil
}
