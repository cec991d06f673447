package session

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/iksnae/ragchat/internal"
	"github.com/stretchr/testify/require"
)

var fullCredentials = internal.StaticCredentials{
	OpenAIAPIKey:        "sk-test",
	PineconeAPIKey:      "pc-test",
	PineconeEnvironment: "us-west1-gcp",
	PineconeIndexName:   "docs",
}

type askFunc func(ctx context.Context, req internal.ChatRequest) (*internal.Answer, error)

type fakeBackend struct {
	mu       sync.Mutex
	requests []internal.ChatRequest
	ask      askFunc
}

func (b *fakeBackend) Ask(ctx context.Context, _ internal.Credentials, req internal.ChatRequest) (*internal.Answer, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	ask := b.ask
	b.mu.Unlock()
	if ask == nil {
		return &internal.Answer{Text: "answer to " + req.Question}, nil
	}
	return ask(ctx, req)
}

func (b *fakeBackend) calls() []internal.ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]internal.ChatRequest(nil), b.requests...)
}

type countingView struct {
	cleared  atomic.Int32
	scrolled atomic.Int32
}

func (v *countingView) ClearInput()     { v.cleared.Add(1) }
func (v *countingView) ScrollToBottom() { v.scrolled.Add(1) }

type harness struct {
	db       *sql.DB
	registry *internal.Registry
	store    *internal.Storage
	backend  *fakeBackend
	view     *countingView
	ctrl     *Controller
}

type harnessOption func(*Options)

func withCredentials(src internal.CredentialSource) harnessOption {
	return func(o *Options) { o.Credentials = src }
}

func withCancelOnSwitch() harnessOption {
	return func(o *Options) { o.CancelOnSwitch = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	db, err := internal.OpenDatabase(internal.MemoryDatabase)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		db:       db,
		registry: internal.NewRegistry(db),
		store:    internal.NewStorage(db),
		backend:  &fakeBackend{},
		view:     &countingView{},
	}

	o := Options{
		Directory:   internal.StaticDirectory{"alpha", "beta"},
		Registry:    h.registry,
		Store:       h.store,
		Backend:     h.backend,
		Credentials: fullCredentials,
		View:        h.view,
		Temperature: internal.DefaultTemperature,
	}
	for _, opt := range opts {
		opt(&o)
	}

	h.ctrl, err = NewController(o)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Start())
	t.Cleanup(h.ctrl.Close)
	return h
}

// newChat creates a chat in the active namespace through the controller
func (h *harness) newChat(t *testing.T) string {
	t.Helper()
	chat, err := h.ctrl.CreateChat()
	require.NoError(t, err)
	return chat.ChatID
}
