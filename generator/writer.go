package generator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/botmodel/dialog"
)

// ModelSuffix is appended to the bot name to form the model file name.
const ModelSuffix = ".model.json"

// ModelURL returns the model location for bot under baseURL.
func ModelURL(baseURL, bot string) string {
	return url.Join(baseURL, bot+ModelSuffix)
}

// Encode serializes a model as compact JSON without HTML escaping.
func Encode(model *dialog.Model) ([]byte, error) {
	data, err := model.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return data, nil
}

// Write serializes model and uploads it to URL. The write is not atomic.
func Write(ctx context.Context, fs afs.Service, URL string, model *dialog.Model) error {
	data, err := Encode(model)
	if err != nil {
		return err
	}
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload %s: %w", URL, err)
	}
	return nil
}

// Read downloads and decodes a model.
func Read(ctx context.Context, fs afs.Service, URL string) (*dialog.Model, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", URL, err)
	}
	return dialog.ParseModel(data)
}
