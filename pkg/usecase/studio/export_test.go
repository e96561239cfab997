package studio_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/gt"
)

type mockStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

type mockWriteCloser struct {
	*bytes.Buffer
	storage *mockStorage
	key     string
}

func (m *mockWriteCloser) Close() error {
	m.storage.objects[m.key] = m.Buffer.Bytes()
	return nil
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string) (io.WriteCloser, error) {
	m.contentTypes[key] = contentType
	return &mockWriteCloser{Buffer: &bytes.Buffer{}, storage: m, key: key}, nil
}

func (m *mockStorage) URL(key string) string {
	return "gs://test-bucket/" + key
}

func (m *mockStorage) Close() error {
	return nil
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	storage := newMockStorage()
	gw := &mockGateway{output: "<!DOCTYPE html><html></html>"}
	uc := studio.New(gw, repository.NewMemory(), studio.WithStorage(storage))
	gt.True(t, uc.ExportEnabled())

	result, err := uc.SubmitGeneration(ctx, studio.GenerationInput{Text: "page", Kind: model.KindHTML})
	gt.NoError(t, err)

	url, err := uc.Export(ctx, result.ID)
	gt.NoError(t, err)

	key := "concepts/web-concept-" + string(result.ID) + ".html"
	gt.Equal(t, url, "gs://test-bucket/"+key)
	gt.Equal(t, string(storage.objects[key]), "<!DOCTYPE html><html></html>")
	gt.S(t, storage.contentTypes[key]).Contains("text/html")
}

func TestExportRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		uc := studio.New(&mockGateway{}, repository.NewMemory())
		gt.False(t, uc.ExportEnabled())

		_, err := uc.Export(ctx, model.ResultID("any"))
		gt.True(t, errors.Is(err, studio.ErrExportDisabled))
	})

	t.Run("text result", func(t *testing.T) {
		uc := studio.New(&mockGateway{output: "words"}, repository.NewMemory(), studio.WithStorage(newMockStorage()))
		result, err := uc.SubmitGeneration(ctx, studio.GenerationInput{Text: "brief", Kind: model.KindText})
		gt.NoError(t, err)

		_, err = uc.Export(ctx, result.ID)
		gt.True(t, errors.Is(err, studio.ErrInvalidInput))
	})

	t.Run("unknown result", func(t *testing.T) {
		uc := studio.New(&mockGateway{}, repository.NewMemory(), studio.WithStorage(newMockStorage()))
		_, err := uc.Export(ctx, model.ResultID("missing"))
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})
}

func TestDownloadName(t *testing.T) {
	gt.Equal(t, studio.DownloadName(model.ResultID("abc")), "web-concept-abc.html")
}
