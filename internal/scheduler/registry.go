package scheduler

import (
	"sync"

	"cronmachine/internal/domain"
)

// Registry collects tasks before the scheduler starts.
//
// Add is only supported before Run begins. Once the loop starts the registry
// is frozen and further calls fail with ErrRegistryFrozen, since the loop
// owns the task list from then on.
type Registry struct {
	mu     sync.Mutex
	tasks  []*domain.Task
	frozen bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a task with both timestamps unset. The schedule is not
// validated here; a malformed expression surfaces on the first loop iteration.
// IDs are for diagnostics only and need not be unique.
func (r *Registry) Add(id, schedule string, action domain.Action) error {
	if action == nil {
		return ErrNilAction
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	r.tasks = append(r.tasks, &domain.Task{ID: id, Schedule: schedule, Action: action})
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// freeze hands the task list over to the loop.
func (r *Registry) freeze() []*domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	return r.tasks
}
