package studio

import (
	"context"
	"io"

	"github.com/m-mizutani/conceptstudio/pkg/adapter"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const exportPrefix = "concepts/"

// ErrExportDisabled is returned by Export when no storage is configured
var ErrExportDisabled = goerr.New("export storage is not configured")

// WithStorage enables exporting HTML results to object storage
func WithStorage(storage adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.storage = storage
	}
}

// Result retrieves one stored result
func (u *UseCase) Result(ctx context.Context, id model.ResultID) (*model.Result, error) {
	result, err := u.store.Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get result", goerr.V("result_id", id))
	}
	return result, nil
}

// ExportEnabled reports whether Export can be used
func (u *UseCase) ExportEnabled() bool {
	return u.storage != nil
}

// DownloadName is the file name offered for an HTML result
func DownloadName(id model.ResultID) string {
	return "web-concept-" + string(id) + ".html"
}

// Export uploads an HTML result and returns its location
func (u *UseCase) Export(ctx context.Context, id model.ResultID) (string, error) {
	if u.storage == nil {
		return "", ErrExportDisabled
	}

	result, err := u.Result(ctx, id)
	if err != nil {
		return "", err
	}
	if result.Kind != model.KindHTML {
		return "", goerr.Wrap(ErrInvalidInput, "only html results can be exported",
			goerr.V("result_id", id),
			goerr.V("kind", result.Kind))
	}

	key := exportPrefix + DownloadName(id)
	w, err := u.storage.Put(ctx, key, "text/html; charset=utf-8")
	if err != nil {
		return "", goerr.Wrap(err, "failed to open export writer", goerr.V("key", key))
	}

	if _, err := io.WriteString(w, result.Output); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write export", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finish export", goerr.V("key", key))
	}

	url := u.storage.URL(key)
	logging.From(ctx).Info("result exported", "id", id, "url", url)
	return url, nil
}
