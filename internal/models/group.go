package models

// Group represents a set of members who split expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Currency is the ISO code amounts are displayed in (e.g., "USD").
	Currency string

	// Members is the list of member IDs in this group.
	Members []string

	// CreatedBy is the member who created the group.
	CreatedBy string

	// CreatedAt is the Unix millisecond timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether id belongs to the group.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}
