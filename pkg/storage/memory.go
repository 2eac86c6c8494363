package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/energylife/energylife/pkg/types"
)

// MemoryProvider implements the Database interface in memory. Nothing
// survives a restart, it's meant for development and single-instance
// deployments.
type MemoryProvider struct {
	mu       sync.Mutex
	drafts   map[string]types.Draft
	feedback []types.Feedback
	visitors int
}

var _ Database = (*MemoryProvider)(nil)

// NewMemory returns an empty MemoryProvider.
func NewMemory() *MemoryProvider {
	return &MemoryProvider{
		drafts: map[string]types.Draft{},
	}
}

// GetDraft returns the session's draft or ErrDraftNotFound.
func (m *MemoryProvider) GetDraft(ctx context.Context, sessionID string) (types.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[sessionID]
	if !ok {
		return types.Draft{}, ErrDraftNotFound
	}
	return d, nil
}

// SetDraft replaces the session's draft.
func (m *MemoryProvider) SetDraft(ctx context.Context, draft types.Draft) error {
	if draft.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[draft.SessionID] = draft
	return nil
}

// DeleteDraft removes the session's draft.
func (m *MemoryProvider) DeleteDraft(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}

// InsertFeedback stores a feedback record.
func (m *MemoryProvider) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	if feedback.ID == "" {
		return fmt.Errorf("feedback ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, feedback)
	return nil
}

// ListFeedback returns feedback created within [start, end), oldest first.
func (m *MemoryProvider) ListFeedback(ctx context.Context, start, end time.Time) ([]types.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Feedback
	for _, fb := range m.feedback {
		if !fb.CreatedAt.Before(start) && fb.CreatedAt.Before(end) {
			out = append(out, fb)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Feedback) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// IncrementVisitors counts a visitor and returns the total.
func (m *MemoryProvider) IncrementVisitors(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visitors++
	return m.visitors, nil
}

// Close does nothing.
func (m *MemoryProvider) Close() error {
	return nil
}
