package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID, nil,
		repository.WithPreferenceDocument("test-"+string(model.NewResultID())),
	)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestFirestorePreference(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	// Nothing stored yet
	pref, err := repo.GetPreference(ctx)
	gt.NoError(t, err)
	gt.True(t, pref == nil)

	gt.NoError(t, repo.PutPreference(ctx, &model.Preference{Theme: model.ThemeLight}))

	pref, err = repo.GetPreference(ctx)
	gt.NoError(t, err)
	gt.True(t, pref != nil)
	gt.Equal(t, pref.Theme, model.ThemeLight)
}
