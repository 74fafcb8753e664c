package cache

import (
	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Key hashes a model identifier and text into a cache key.
func Key(model, text string) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte(model)); err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte{'\n'}); err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte(text)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
