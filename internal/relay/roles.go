package relay

// RolePair is the two fixed participant identifiers the room recognizes.
type RolePair [2]string

// Contains reports whether role is one of the pair.
func (p RolePair) Contains(role string) bool {
	return role == p[0] || role == p[1]
}

// Partner returns the other role of the pair, or false if role is not
// part of it.
func (p RolePair) Partner(role string) (string, bool) {
	switch role {
	case p[0]:
		return p[1], true
	case p[1]:
		return p[0], true
	}
	return "", false
}
