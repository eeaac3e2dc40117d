package relay

// Room is the single shared coordination context: a mapping from each of
// the two recognized roles to at most one live connection. It holds
// connection IDs only, never connection lifecycle — that stays with the
// Hub and its clients.
//
// Like the Registry, the Room is mutated only from the Hub's goroutine.
type Room struct {
	name      string
	roles     RolePair
	occupants map[string]string // role -> connection ID
}

// NewRoom creates an empty room for the given role pair.
func NewRoom(name string, roles RolePair) *Room {
	return &Room{
		name:      name,
		roles:     roles,
		occupants: make(map[string]string),
	}
}

// Name returns the room's static name.
func (r *Room) Name() string { return r.name }

// Join maps role to connID, replacing any previous occupant of that role
// (last join wins). It returns the other connections currently in the
// room — the targets for a user-connected notification — and the
// connection ID that was displaced from the role, if any.
func (r *Room) Join(role, connID string) (others []string, displaced string) {
	if prev, ok := r.occupants[role]; ok && prev != connID {
		displaced = prev
	}
	r.occupants[role] = connID
	for occRole, occConn := range r.occupants {
		if occRole != role {
			others = append(others, occConn)
		}
	}
	return others, displaced
}

// Leave removes whichever role is mapped to connID. It returns the
// resolved role ("" when the connection was not in the room) and the
// remaining occupants to notify. Leaving an absent connection is a no-op.
func (r *Room) Leave(connID string) (role string, remaining []string) {
	for occRole, occConn := range r.occupants {
		if occConn == connID {
			role = occRole
			break
		}
	}
	if role == "" {
		return "", nil
	}
	delete(r.occupants, role)
	for _, occConn := range r.occupants {
		remaining = append(remaining, occConn)
	}
	return role, remaining
}

// PartnerOf returns the connection holding the other role of the pair.
func (r *Room) PartnerOf(role string) (string, bool) {
	partner, ok := r.roles.Partner(role)
	if !ok {
		return "", false
	}
	connID, ok := r.occupants[partner]
	return connID, ok
}

// BroadcastTargets returns every occupant except the sender. With the
// room capped at two this is the partner's connection, if present.
func (r *Room) BroadcastTargets(senderConnID string) []string {
	var targets []string
	for _, occConn := range r.occupants {
		if occConn != senderConnID {
			targets = append(targets, occConn)
		}
	}
	return targets
}

// Occupants returns the number of connections currently in the room.
func (r *Room) Occupants() int { return len(r.occupants) }

// ConnOf returns the connection currently holding role, if any.
func (r *Room) ConnOf(role string) (string, bool) {
	connID, ok := r.occupants[role]
	return connID, ok
}
