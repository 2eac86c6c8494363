package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/energylife/energylife/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
)

// Database persists what the front-end keeps on its own, next to the
// simulator backend: each session's last submitted form, feedback and the
// visitor counter.
type Database interface {
	// Drafts
	GetDraft(ctx context.Context, sessionID string) (types.Draft, error)
	SetDraft(ctx context.Context, draft types.Draft) error
	DeleteDraft(ctx context.Context, sessionID string) error

	// Feedback
	InsertFeedback(ctx context.Context, feedback types.Feedback) error
	ListFeedback(ctx context.Context, start, end time.Time) ([]types.Feedback, error)

	// IncrementVisitors counts a new visitor and returns the new total.
	IncrementVisitors(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "memory", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
