package internal

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/iksnae/ragchat/testutil"
)

type stubLister struct {
	calls      atomic.Int32
	namespaces []string
	err        error
	inCall     func()
}

func (s *stubLister) ListNamespaces(ctx context.Context, creds Credentials) ([]string, error) {
	s.calls.Add(1)
	if s.inCall != nil {
		s.inCall()
	}
	return append([]string(nil), s.namespaces...), s.err
}

func TestDirectory_NamespacesSortedAndCached(t *testing.T) {
	lister := &stubLister{namespaces: []string{"legal", "handbook"}}
	gate := NewCredentialGate(StaticCredentials(testCredentials))
	cache := NewCacheManager(testutil.CreateTempDir(t))
	dir := NewDirectory(lister, gate, cache, "http://localhost:3000", DefaultNamespaceTTL)

	got, err := dir.Namespaces(context.Background())
	if err != nil {
		t.Fatalf("Namespaces() error = %v", err)
	}
	want := []string{"handbook", "legal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Namespaces() = %v, want %v", got, want)
	}

	if _, err := dir.Namespaces(context.Background()); err != nil {
		t.Fatalf("second Namespaces() error = %v", err)
	}
	if n := lister.calls.Load(); n != 1 {
		t.Errorf("lister called %d times, want 1 (cached)", n)
	}

	dir.ForceRefresh()
	if _, err := dir.Namespaces(context.Background()); err != nil {
		t.Fatalf("refreshed Namespaces() error = %v", err)
	}
	if n := lister.calls.Load(); n != 2 {
		t.Errorf("lister called %d times after ForceRefresh, want 2", n)
	}
}

func TestDirectory_Loading(t *testing.T) {
	lister := &stubLister{namespaces: []string{"a"}}
	dir := NewDirectory(lister, NewCredentialGate(StaticCredentials(testCredentials)), nil, "", 0)

	var during bool
	lister.inCall = func() { during = dir.Loading() }

	if _, err := dir.Namespaces(context.Background()); err != nil {
		t.Fatalf("Namespaces() error = %v", err)
	}
	if !during {
		t.Error("Loading() = false during fetch")
	}
	if dir.Loading() {
		t.Error("Loading() = true after fetch")
	}
}

func TestDirectory_MissingCredentials(t *testing.T) {
	lister := &stubLister{namespaces: []string{"a"}}
	dir := NewDirectory(lister, NewCredentialGate(StaticCredentials{}), nil, "", 0)

	_, err := dir.Namespaces(context.Background())
	var missing *MissingCredentialsError
	if !errors.As(err, &missing) {
		t.Errorf("Namespaces() error = %v, want MissingCredentialsError", err)
	}
	if lister.calls.Load() != 0 {
		t.Error("lister called without credentials")
	}
}

func TestDirectory_ListerError(t *testing.T) {
	lister := &stubLister{err: &BackendError{Status: 500, Message: "down"}}
	cache := NewCacheManager(testutil.CreateTempDir(t))
	dir := NewDirectory(lister, NewCredentialGate(StaticCredentials(testCredentials)), cache, "", DefaultNamespaceTTL)

	if _, err := dir.Namespaces(context.Background()); err == nil {
		t.Fatal("Namespaces() expected error")
	}
	if valid, _ := cache.IsCacheValid(CacheKey{IndexName: "docs", Environment: "us-west1-gcp"}, DefaultNamespaceTTL); valid {
		t.Error("failed fetch should not populate the cache")
	}
}

func TestStaticDirectory(t *testing.T) {
	dir := StaticDirectory{"b", "a"}
	got, err := dir.Namespaces(context.Background())
	if err != nil {
		t.Fatalf("Namespaces() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Namespaces() = %v", got)
	}
	if dir[0] != "b" {
		t.Error("Namespaces() sorted the configured list in place")
	}
	if dir.Loading() {
		t.Error("Loading() = true")
	}
}
