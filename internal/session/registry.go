package session

import (
	"sort"
	"sync"
)

// Registry keeps one Controller per chat.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Controller
	factory  func() *Controller
}

func NewRegistry(factory func() *Controller) *Registry {
	return &Registry{
		sessions: make(map[int64]*Controller),
		factory:  factory,
	}
}

func (r *Registry) Get(chatID int64) *Controller {
	r.mu.RLock()
	ctrl, ok := r.sessions[chatID]
	r.mu.RUnlock()
	if ok {
		return ctrl
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.sessions[chatID]; ok {
		return ctrl
	}
	ctrl = r.factory()
	r.sessions[chatID] = ctrl
	return ctrl
}

func (r *Registry) ChatIDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CountByState tallies sessions by their current state name.
func (r *Registry) CountByState() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[string]int{
		StateNoTierSelected.String():  0,
		StateTierSelected.String():    0,
		StateImagesDisplayed.String(): 0,
	}
	for _, ctrl := range r.sessions {
		counts[ctrl.State().String()]++
	}
	return counts
}
