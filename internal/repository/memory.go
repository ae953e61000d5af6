package repository

import (
	"context"
	"sync"

	"github.com/dkeye/Interview/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository keeps interviews in process; used when no database is
// configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	byRoom map[domain.RoomID][]*Interview
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byRoom: make(map[domain.RoomID][]*Interview)}
}

func (r *MemoryRepository) StartInterview(_ context.Context, in StartInterviewInput) (*Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.runningLocked(in.RoomID); cur != nil {
		out := *cur
		return &out, nil
	}
	iv := &Interview{
		ID:            uuid.NewString(),
		RoomID:        in.RoomID,
		ApplicationID: in.ApplicationID,
		CompanyID:     in.CompanyID,
		UserID:        in.UserID,
		CompanyName:   in.CompanyName,
		StartedAt:     in.StartedAt,
		Status:        InterviewStatusRunning,
	}
	r.byRoom[in.RoomID] = append(r.byRoom[in.RoomID], iv)
	out := *iv
	return &out, nil
}

func (r *MemoryRepository) CompleteInterview(_ context.Context, in CompleteInterviewInput) (*Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv := r.runningLocked(in.RoomID)
	if iv == nil {
		iv = &Interview{
			ID:            uuid.NewString(),
			RoomID:        in.RoomID,
			ApplicationID: in.ApplicationID,
			CompanyID:     in.CompanyID,
			UserID:        in.UserID,
			StartedAt:     in.StartedAt,
		}
		r.byRoom[in.RoomID] = append(r.byRoom[in.RoomID], iv)
	}
	ended := in.EndedAt
	iv.EndedAt = &ended
	iv.Status = InterviewStatusCompleted
	iv.DurationSeconds = Duration(iv.StartedAt, ended)
	out := *iv
	return &out, nil
}

func (r *MemoryRepository) GetInterviewByRoom(_ context.Context, roomID domain.RoomID) (*Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byRoom[roomID]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	out := *list[len(list)-1]
	return &out, nil
}

func (r *MemoryRepository) runningLocked(roomID domain.RoomID) *Interview {
	list := r.byRoom[roomID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Status == InterviewStatusRunning {
			return list[i]
		}
	}
	return nil
}
