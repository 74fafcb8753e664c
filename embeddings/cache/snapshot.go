package cache

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/bintly"
)

// snapshot is the persisted form of the cache: the model it was computed
// with followed by (key, vector) pairs.
type snapshot struct {
	model   string
	vectors map[uint64][]float32
	// limit caps decoded lengths at the size of the encoded input.
	limit int
}

// EncodeBinary encodes the snapshot to a bintly stream.
func (s *snapshot) EncodeBinary(stream *bintly.Writer) error {
	stream.String(s.model)
	stream.Int(len(s.vectors))
	for _, key := range sortedKeys(s.vectors) {
		vec := s.vectors[key]
		stream.String(strconv.FormatUint(key, 16))
		stream.Int(len(vec))
		for _, v := range vec {
			stream.Float32(v)
		}
	}
	return nil
}

// DecodeBinary decodes the snapshot from a bintly stream.
func (s *snapshot) DecodeBinary(stream *bintly.Reader) error {
	var model string
	stream.String(&model)
	s.model = strings.Clone(model)
	var size int
	stream.Int(&size)
	if size < 0 || size > s.limit {
		return fmt.Errorf("invalid cache size %d", size)
	}
	s.vectors = make(map[uint64][]float32, size)
	for i := 0; i < size; i++ {
		var hexKey string
		stream.String(&hexKey)
		key, err := strconv.ParseUint(hexKey, 16, 64)
		if err != nil {
			return fmt.Errorf("invalid cache key %q: %w", hexKey, err)
		}
		var dim int
		stream.Int(&dim)
		if dim < 0 || dim > s.limit/4 {
			return fmt.Errorf("invalid dimension %d for cache key %s", dim, hexKey)
		}
		vec := make([]float32, dim)
		for j := range vec {
			stream.Float32(&vec[j])
		}
		s.vectors[key] = vec
	}
	return nil
}

// Load merges a snapshot stored at URL. A missing snapshot, or one computed
// with another model, is ignored. It returns the number of loaded vectors.
func (e *Embedder) Load(ctx context.Context, fs afs.Service, URL string) (int, error) {
	ok, err := fs.Exists(ctx, URL)
	if err != nil || !ok {
		return 0, err
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return 0, fmt.Errorf("download cache %s: %w", URL, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return 0, fmt.Errorf("decode cache %s: %w", URL, err)
	}
	if snap.model != e.model {
		return 0, nil
	}
	for key, vec := range snap.vectors {
		e.vectors.Set(key, vec)
	}
	return len(snap.vectors), nil
}

// decodeSnapshot decodes data, reporting truncated or corrupt input as an
// error rather than a panic from the underlying reader.
func decodeSnapshot(data []byte) (snap *snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("truncated or corrupt snapshot: %v", r)
		}
	}()
	readers := bintly.NewReaders()
	reader := readers.Get()
	defer readers.Put(reader)
	if err := reader.FromBytes(data); err != nil {
		return nil, err
	}
	snap = &snapshot{limit: len(data)}
	if err := snap.DecodeBinary(reader); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save writes all cached vectors to URL. The snapshot is uploaded next to
// URL first and moved into place, so readers never see a partial file.
func (e *Embedder) Save(ctx context.Context, fs afs.Service, URL string) error {
	snap := &snapshot{model: e.model, vectors: e.vectors.Snapshot()}
	writers := bintly.NewWriters()
	writer := writers.Get()
	defer writers.Put(writer)
	if err := snap.EncodeBinary(writer); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	data := append([]byte(nil), writer.Bytes()...)
	tmp := URL + ".tmp"
	if err := fs.Upload(ctx, tmp, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload cache %s: %w", tmp, err)
	}
	if err := fs.Move(ctx, tmp, URL); err != nil {
		// fallback: upload directly to URL, then drop the temp copy
		if err2 := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err2 != nil {
			_ = fs.Delete(ctx, tmp)
			return fmt.Errorf("failed to move cache and upload fallback: %v / %v", err, err2)
		}
		_ = fs.Delete(ctx, tmp)
	}
	return nil
}
