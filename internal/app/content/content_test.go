package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Put(ctx, "listing.json", []byte(`{"title":"Lamp"}`))
	require.NoError(t, err)
	assert.Contains(t, id, "mem://")
	assert.Contains(t, id, "listing.json")

	data, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Lamp"}`, string(data))
}

func TestMemoryStoreErrors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "s3://bucket/key")
	assert.ErrorIs(t, err, ErrInvalidContentID)

	_, err = store.Get(ctx, "mem://missing/blob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONHelpers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := PutJSON(ctx, store, "listing.json", ListingMetadata{Name: "Lamp", Description: "brass, working", Image: "mem://img/lamp.png"})
	require.NoError(t, err)

	raw, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Lamp","description":"brass, working","image":"mem://img/lamp.png"}`, string(raw))

	var meta ListingMetadata
	require.NoError(t, GetJSON(ctx, store, id, &meta))
	assert.Equal(t, "Lamp", meta.Name)
	assert.Equal(t, "brass, working", meta.Description)
}

func TestPutCopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("original")
	id, err := store.Put(ctx, "note.txt", buf)
	require.NoError(t, err)
	buf[0] = 'X'

	data, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
