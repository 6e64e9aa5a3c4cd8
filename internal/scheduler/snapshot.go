package scheduler

import (
	"time"

	"cronmachine/internal/domain"
)

// entry is the loop's private bookkeeping for one task.
type entry struct {
	task     *domain.Task
	runs     int
	failures int
	lastErr  string
}

func (e *entry) view() domain.TaskView {
	t := e.task
	v := domain.TaskView{
		ID:            t.ID,
		Schedule:      t.Schedule,
		LastExecution: timePtr(t.LastExecution),
		NextExecution: timePtr(t.NextExecution),
		Disabled:      t.Disabled,
		Runs:          e.runs,
		Failures:      e.failures,
		LastError:     e.lastErr,
	}
	if t.Err != nil {
		v.Reason = t.Err.Error()
	}
	return v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// publish copies task state for readers outside the loop goroutine.
func (s *Service) publish(entries []*entry) {
	views := make([]domain.TaskView, len(entries))
	for i, e := range entries {
		views[i] = e.view()
	}
	s.mu.Lock()
	s.views = views
	s.mu.Unlock()
}

// Snapshot returns the task state as of the loop's last publish. It is empty
// before Run starts.
func (s *Service) Snapshot() []domain.TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TaskView, len(s.views))
	copy(out, s.views)
	return out
}

// Lookup returns the views of every task with the given id.
func (s *Service) Lookup(id string) []domain.TaskView {
	var out []domain.TaskView
	for _, v := range s.Snapshot() {
		if v.ID == id {
			out = append(out, v)
		}
	}
	return out
}
