package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionPreferences = "preferences"
	defaultPreferenceDoc  = "default"
)

// Firestore implements PreferenceStore. Results are never written here; they
// live only in the session's Memory store.
type Firestore struct {
	client *firestore.Client
	docID  string
}

// FirestoreOption is a functional option for Firestore
type FirestoreOption func(*Firestore)

// WithPreferenceDocument stores preferences under a document other than "default"
func WithPreferenceDocument(docID string) FirestoreOption {
	return func(f *Firestore) {
		f.docID = docID
	}
}

// NewFirestore connects to the given Firestore database
func NewFirestore(ctx context.Context, projectID, databaseID string, clientOpts []option.ClientOption, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	f := &Firestore{
		client: client,
		docID:  defaultPreferenceDoc,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) GetPreference(ctx context.Context) (*model.Preference, error) {
	doc, err := f.client.Collection(collectionPreferences).Doc(f.docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get preference", goerr.V("doc_id", f.docID))
	}

	var pref model.Preference
	if err := doc.DataTo(&pref); err != nil {
		return nil, goerr.Wrap(err, "failed to decode preference", goerr.V("doc_id", f.docID))
	}

	return &pref, nil
}

func (f *Firestore) PutPreference(ctx context.Context, pref *model.Preference) error {
	if pref == nil {
		return goerr.New("preference is nil")
	}

	if _, err := f.client.Collection(collectionPreferences).Doc(f.docID).Set(ctx, pref); err != nil {
		return goerr.Wrap(err, "failed to put preference", goerr.V("doc_id", f.docID))
	}

	return nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}
