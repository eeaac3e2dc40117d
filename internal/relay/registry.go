package relay

// Registry tracks live connections and the role each one has claimed.
// It is owned by the Hub and only ever touched from the Hub's goroutine,
// so it carries no locking of its own.
type Registry struct {
	roles RolePair
	conns map[string]string // connection ID -> claimed role, "" until join
}

// NewRegistry creates a registry that recognizes the given role pair.
func NewRegistry(roles RolePair) *Registry {
	return &Registry{
		roles: roles,
		conns: make(map[string]string),
	}
}

// Register records a new connection with no claimed role.
func (r *Registry) Register(connID string) {
	r.conns[connID] = ""
}

// ClaimRole sets the role for a connection, overwriting any prior claim
// on that connection. Roles outside the recognized pair are rejected.
func (r *Registry) ClaimRole(connID, role string) error {
	if !r.roles.Contains(role) {
		return ErrInvalidRole
	}
	r.conns[connID] = role
	return nil
}

// Unregister removes a connection. Removing an unknown connection is a no-op.
func (r *Registry) Unregister(connID string) {
	delete(r.conns, connID)
}

// RoleOf returns the role claimed by a connection, or "" when the
// connection is unknown or has not joined yet.
func (r *Registry) RoleOf(connID string) string {
	return r.conns[connID]
}

// Registered reports whether the connection is known to the registry.
func (r *Registry) Registered(connID string) bool {
	_, ok := r.conns[connID]
	return ok
}
