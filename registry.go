package watch

import (
	"sync"

	"github.com/pkg/errors"
)

// Registration records a service that has been written to the attribute
// table, together with the handles of its characteristic values (in the order
// of Service.Characteristics).
type Registration struct {
	Service UUID
	Handles []Handle
}

// Registry owns the attribute table of a Link and guarantees that each
// service UUID is written to it at most once, however many service objects
// are constructed for it.
type Registry struct {
	link Link

	mu      sync.Mutex
	entries map[UUID]*Registration
}

// NewRegistry returns an empty registry for the given link.
func NewRegistry(link Link) *Registry {
	return &Registry{
		link:    link,
		entries: make(map[UUID]*Registration),
	}
}

// Link returns the link the registry writes to.
func (r *Registry) Link() Link {
	return r.link
}

// AddServiceOnce writes svc to the attribute table unless a service with the
// same UUID was registered before. The returned bool reports whether this call
// performed the registration. When it did not, the existing registration is
// returned and svc is left untouched: its Handle pointers are not filled in.
//
// A failed registration is not recorded, so it may be retried.
func (r *Registry) AddServiceOnce(svc *Service) (*Registration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg, ok := r.entries[svc.UUID]; ok {
		return reg, false, nil
	}

	handles := make([]Handle, len(svc.Characteristics))
	for i := range svc.Characteristics {
		if svc.Characteristics[i].Handle == nil {
			svc.Characteristics[i].Handle = &handles[i]
		}
	}
	if err := r.link.AddService(svc); err != nil {
		return nil, false, errors.Wrapf(err, "add service %s", svc.UUID)
	}
	for i, char := range svc.Characteristics {
		handles[i] = *char.Handle
	}

	reg := &Registration{Service: svc.UUID, Handles: handles}
	r.entries[svc.UUID] = reg
	return reg, true, nil
}

// Registered returns whether a service with the given UUID has been written to
// the attribute table.
func (r *Registry) Registered(uuid UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[uuid]
	return ok
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
