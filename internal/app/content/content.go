// Package content stores listing metadata blobs outside the core engine.
// The engine only ever records the opaque content id a Store hands back;
// payload bytes never enter the domain model.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotFound reports an unknown content id.
	ErrNotFound = errors.New("content not found")
	// ErrInvalidContentID reports a malformed content id.
	ErrInvalidContentID = errors.New("invalid content id")
)

// Store persists opaque blobs under generated content ids.
type Store interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
	Get(ctx context.Context, contentID string) ([]byte, error)
}

// ListingMetadata is the JSON document stored for market products and
// auctions. Image is itself a content id.
type ListingMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// StoreMetadata is the JSON document stored per seller store.
type StoreMetadata struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// PutJSON marshals v and stores it under filename.
func PutJSON(ctx context.Context, s Store, filename string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", filename, err)
	}
	return s.Put(ctx, filename, data)
}

// GetJSON fetches a content id and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, contentID string, v interface{}) error {
	data, err := s.Get(ctx, contentID)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", contentID, err)
	}
	return nil
}

// MemoryStore keeps blobs in process memory under mem:// content ids.
// Suitable for tests and single-node deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Put(_ context.Context, filename string, data []byte) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "blob"
	}
	id := fmt.Sprintf("mem://%s/%s", uuid.NewString(), filename)

	m.mu.Lock()
	m.blobs[id] = append([]byte(nil), data...)
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryStore) Get(_ context.Context, contentID string) ([]byte, error) {
	if !strings.HasPrefix(contentID, "mem://") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentID, contentID)
	}

	m.mu.RLock()
	data, ok := m.blobs[contentID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", contentID, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}
