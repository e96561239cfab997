package imagefile

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// ErrNotImage is returned when the file content is not an image
var ErrNotImage = goerr.New("file is not an image")

// Load reads an image file for analysis. The MIME type comes from the file
// extension and falls back to sniffing the content.
func Load(path string) (*model.Image, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read image file", goerr.V("path", path))
	}

	mimeType := DetectMIMEType(path, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, goerr.Wrap(ErrNotImage, "unsupported file type",
			goerr.V("path", path),
			goerr.V("mime_type", mimeType))
	}

	return &model.Image{
		Data:     data,
		MIMEType: mimeType,
	}, nil
}

// DetectMIMEType guesses the media type of data named path
func DetectMIMEType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return http.DetectContentType(data)
}
