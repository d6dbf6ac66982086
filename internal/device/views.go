package device

import (
	"slices"

	"github.com/google/uuid"

	"lifx-monitor/internal/protocol"
)

// Membership is a derived view of one group or location.
type Membership struct {
	ID        uuid.UUID
	Label     string
	UpdatedAt uint64 // timestamp of the report the label came from
	Members   []protocol.Site
}

// Has reports whether site belongs to the collection.
func (m Membership) Has(site protocol.Site) bool {
	return slices.Contains(m.Members, site)
}

// Groups computes group membership from the current device states. The
// label is the one carried by the most recent report among the members.
func (r *Registry) Groups() map[uuid.UUID]Membership {
	return r.collections(func(s *State) (Collection, bool) {
		return s.Group, s.hasGroup
	})
}

// Locations is Groups for location assignments.
func (r *Registry) Locations() map[uuid.UUID]Membership {
	return r.collections(func(s *State) (Collection, bool) {
		return s.Location, s.hasLocation
	})
}

func (r *Registry) collections(pick func(*State) (Collection, bool)) map[uuid.UUID]Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uuid.UUID]Membership)
	for _, site := range r.order {
		c, ok := pick(r.devices[site])
		if !ok {
			continue
		}
		m, exists := result[c.ID]
		if !exists || c.UpdatedAt > m.UpdatedAt {
			m.ID = c.ID
			m.Label = c.Label
			m.UpdatedAt = c.UpdatedAt
		}
		m.Members = append(m.Members, site)
		result[c.ID] = m
	}
	return result
}
