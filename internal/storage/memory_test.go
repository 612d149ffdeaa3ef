package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryKV()

	value := []byte("abc")
	if err := m.Set(ctx, []byte("k"), value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'

	got, err := m.Get(ctx, []byte("k"))
	if err != nil || string(got) != "abc" {
		t.Errorf("Get() = %q, %v; stored value must be a copy", got, err)
	}

	if err := m.Delete(ctx, []byte("k")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, []byte("k")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get after Delete error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d", m.Len())
	}

	m.Close()
	if err := m.Set(ctx, []byte("k"), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close error = %v", err)
	}
}
