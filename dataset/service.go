package dataset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/botmodel/dialog"
)

// ErrNotFound is returned when no dataset exists for a bot.
var ErrNotFound = errors.New("dataset not found")

// Format identifies a dataset encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// Formats lists supported formats in lookup order.
var Formats = []Format{FormatCSV, FormatXLSX, FormatXLS}

// FormatOf returns the format implied by a file extension, CSV by default.
func FormatOf(location string) Format {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(url.Path(location)), "."))
	switch Format(ext) {
	case FormatXLSX, FormatXLS:
		return Format(ext)
	}
	return FormatCSV
}

// Parse decodes dataset content.
func Parse(format Format, data []byte) ([]dialog.Record, error) {
	switch format {
	case FormatXLSX:
		return ParseXLSX(data)
	case FormatXLS:
		return ParseXLS(data)
	default:
		return ParseCSV(data)
	}
}

// Service reads datasets through afs, so any supported storage scheme works.
type Service struct {
	fs afs.Service
}

// New creates a dataset service.
func New(fs afs.Service) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs}
}

// Locate returns the URL of the first existing <bot>.<format> under baseURL.
func (s *Service) Locate(ctx context.Context, baseURL, bot string) (string, error) {
	for _, format := range Formats {
		candidate := url.Join(baseURL, bot+"."+string(format))
		ok, err := s.fs.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check %s: %w", candidate, err)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrNotFound, bot, baseURL)
}

// Load downloads and parses a dataset.
func (s *Service) Load(ctx context.Context, URL string) ([]dialog.Record, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", URL, err)
	}
	records, err := Parse(FormatOf(URL), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", URL, err)
	}
	return records, nil
}
