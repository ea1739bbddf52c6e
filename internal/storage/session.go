package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const scheme = "blob:"

type object struct {
	data []byte
	info ObjectInfo
}

// sessionStorage keeps objects in memory for the lifetime of the process.
// Handles carry a random session id, so a handle issued by a previous process never resolves.
// It is safe for concurrent use by multiple goroutines.
type sessionStorage struct {
	id       string
	maxBytes int64
	now      func() time.Time

	mu      sync.RWMutex
	objects map[string]object
}

// NewSession creates an in-memory session store. maxBytes <= 0 disables the size limit.
func NewSession(maxBytes int64) Storage {
	return &sessionStorage{
		id:       uuid.NewString(),
		maxBytes: maxBytes,
		now:      time.Now,
		objects:  make(map[string]object),
	}
}

func (s *sessionStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if key == "" {
		return ObjectInfo{}, fmt.Errorf("empty object key")
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if s.maxBytes > 0 && opt.Size > s.maxBytes {
		return ObjectInfo{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, opt.Size, s.maxBytes)
	}

	src := r
	if s.maxBytes > 0 {
		// one extra byte tells an exact fit apart from an overflow
		src = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("read object: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return ObjectInfo{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.maxBytes)
	}

	sum := md5.Sum(data)
	info := ObjectInfo{
		Key:          key,
		URL:          s.URL(key),
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  opt.ContentType,
		LastModified: s.now(),
		Metadata:     opt.Metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.objects[key]; taken {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	s.objects[key] = object{data: data, info: info}

	return info, nil
}

func (s *sessionStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (s *sessionStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *sessionStorage) URL(key string) string {
	return scheme + s.id + "/" + key
}

func (s *sessionStorage) Resolve(url string) (string, bool) {
	prefix := scheme + s.id + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}
