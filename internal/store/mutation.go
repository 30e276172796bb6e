package store

import (
	"context"

	"github.com/chepyr/go-task-planner/internal/models"
)

// MutationState tracks the completion toggle of a single task.
type MutationState int

const (
	Clean MutationState = iota
	PendingOptimistic
	Reconciled
	RolledBack
)

func (m MutationState) String() string {
	switch m {
	case PendingOptimistic:
		return "pending"
	case Reconciled:
		return "reconciled"
	case RolledBack:
		return "rolled-back"
	default:
		return "clean"
	}
}

// toggleState is per task. seq numbers every toggle; only the response to
// the latest one (seq) may flip the local flag. confirmed is the newest
// server-acknowledged copy of the task, settled is the seq it came from.
type toggleState struct {
	seq       uint64
	settled   uint64
	confirmed models.Task
	state     MutationState
}

// ToggleComplete flips the completion flag locally before the server
// answers. A newer toggle supersedes older ones: a stale success only
// refreshes the confirmed copy and a stale failure only reports the error.
// When the latest toggle fails the flag reverts to the last confirmed value.
func (s *Store) ToggleComplete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	ts := s.toggles[id]
	if ts == nil {
		ts = &toggleState{}
		s.toggles[id] = ts
	}
	if ts.state != PendingOptimistic {
		ts.confirmed = s.tasks[i].Clone()
	}
	ts.seq++
	seq := ts.seq
	ts.state = PendingOptimistic

	desired := !s.tasks[i].Completed
	s.tasks[i].SetCompleted(desired, s.now().UTC())
	s.mu.Unlock()

	s.log.WithField("task_id", id).WithField("completed", desired).Debug("optimistic toggle")
	task, err := s.api.CompleteTask(ctx, id, desired)

	s.mu.Lock()
	defer s.mu.Unlock()
	ts = s.toggles[id]
	if err != nil {
		s.failLocked(err, "Failed to update task")
		if ts != nil && seq == ts.seq {
			s.restoreLocked(id, ts.confirmed)
			ts.state = RolledBack
		}
		return err
	}
	if ts == nil {
		// Deleted while the request was in flight.
		return nil
	}
	if seq > ts.settled {
		ts.confirmed = task.Clone()
		ts.settled = seq
		if seq == ts.seq || ts.state == RolledBack {
			if j := s.indexLocked(id); j >= 0 {
				s.tasks[j] = task
			}
		}
	}
	if seq == ts.seq {
		ts.state = Reconciled
	}
	return nil
}

// MutationState reports where the task's last toggle stands.
func (s *Store) MutationState(id string) MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts := s.toggles[id]; ts != nil {
		return ts.state
	}
	return Clean
}

// restoreLocked puts back the completion fields of confirmed. Other fields
// may have been edited meanwhile and are left alone.
func (s *Store) restoreLocked(id string, confirmed models.Task) {
	i := s.indexLocked(id)
	if i < 0 {
		return
	}
	t := &s.tasks[i]
	t.Completed = confirmed.Completed
	t.Status = confirmed.Status
	t.CompletedAt = nil
	if confirmed.CompletedAt != nil {
		at := *confirmed.CompletedAt
		t.CompletedAt = &at
	}
}

// keepPendingLocked carries the optimistic flag over a server copy that
// arrived while a toggle is still in flight.
func (s *Store) keepPendingLocked(task *models.Task) {
	ts := s.toggles[task.ID]
	if ts == nil || ts.state != PendingOptimistic {
		return
	}
	i := s.indexLocked(task.ID)
	if i < 0 {
		return
	}
	local := s.tasks[i]
	task.Completed = local.Completed
	task.Status = local.Status
	task.CompletedAt = nil
	if local.CompletedAt != nil {
		at := *local.CompletedAt
		task.CompletedAt = &at
	}
}
