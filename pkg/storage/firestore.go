package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// feedbackIDLayout is fixed width so document IDs sort by time.
const feedbackIDLayout = "2006-01-02T15:04:05.000000000Z"

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Values are stored as JSON strings in a "json" field.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// the project ID may be empty, it's detected from the environment then
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) draftDoc(sessionID string) (*firestore.DocumentRef, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}
	return f.client.Collection("drafts").Doc(sessionID), nil
}

// jsonField decodes the "json" field of doc into v.
func jsonField(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}

// GetDraft retrieves the last form the session submitted from the
// "drafts/{sessionID}" document.
func (f *FirestoreProvider) GetDraft(ctx context.Context, sessionID string) (types.Draft, error) {
	ref, err := f.draftDoc(sessionID)
	if err != nil {
		return types.Draft{}, err
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Draft{}, ErrDraftNotFound
		}
		return types.Draft{}, fmt.Errorf("failed to fetch draft doc: %w", err)
	}
	var d types.Draft
	if err := jsonField(ctx, doc, &d); err != nil {
		return types.Draft{}, err
	}
	return d, nil
}

// SetDraft replaces the session's draft.
func (f *FirestoreProvider) SetDraft(ctx context.Context, draft types.Draft) error {
	ref, err := f.draftDoc(draft.SessionID)
	if err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	_, err = ref.Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"updatedAt": draft.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// DeleteDraft removes the session's draft. Deleting a missing draft is not
// an error.
func (f *FirestoreProvider) DeleteDraft(ctx context.Context, sessionID string) error {
	ref, err := f.draftDoc(sessionID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// InsertFeedback adds a feedback record to the "feedback" collection. The
// document ID starts with the creation time for efficient range queries.
func (f *FirestoreProvider) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	if feedback.ID == "" {
		return fmt.Errorf("feedback ID cannot be empty")
	}
	jsonBytes, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	docID := feedback.CreatedAt.UTC().Format(feedbackIDLayout) + "_" + feedback.ID
	_, err = f.client.Collection("feedback").Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"createdAt": feedback.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback retrieves feedback created within [start, end).
func (f *FirestoreProvider) ListFeedback(ctx context.Context, start, end time.Time) ([]types.Feedback, error) {
	coll := f.client.Collection("feedback")
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(start.UTC().Format(feedbackIDLayout))).
		Where(firestore.DocumentID, "<", coll.Doc(end.UTC().Format(feedbackIDLayout))).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []types.Feedback
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating feedback: %w", err)
		}
		var fb types.Feedback
		if err := jsonField(ctx, doc, &fb); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, nil
}

// IncrementVisitors atomically bumps the "counters/visitors" document and
// returns the new count.
func (f *FirestoreProvider) IncrementVisitors(ctx context.Context) (int, error) {
	ref := f.client.Collection("counters").Doc("visitors")
	_, err := ref.Set(ctx, map[string]interface{}{
		"count": firestore.Increment(1),
	}, firestore.MergeAll)
	if err != nil {
		return 0, fmt.Errorf("failed to increment visitors: %w", err)
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch visitors doc: %w", err)
	}
	v, err := doc.DataAt("count")
	if err != nil {
		return 0, fmt.Errorf("visitors document missing 'count' field: %w", err)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("visitors 'count' field is not an integer")
	}
	return int(n), nil
}
