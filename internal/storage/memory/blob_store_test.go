package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "path/page.html", "text/html", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://path/page.html" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	obj, ok := store.Object("path/page.html")
	if !ok {
		t.Fatal("expected object to be stored")
	}
	if string(obj.Data) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", obj.Data)
	}
	if obj.ContentType != "text/html" {
		t.Fatalf("content type = %q", obj.ContentType)
	}
}

func TestBlobStoreErr(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	store.Err = errors.New("boom")
	if _, err := store.PutObject(context.Background(), "a", "", bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error")
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", store.Keys())
	}
}

func TestBlobStoreKeysSorted(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, k := range []string{"b", "a", "c"} {
		if _, err := store.PutObject(context.Background(), k, "", bytes.NewReader([]byte(k))); err != nil {
			t.Fatal(err)
		}
	}
	got := store.Keys()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("keys = %v", got)
	}
}
