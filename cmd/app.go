package cmd

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iksnae/ragchat/internal"
	"github.com/iksnae/ragchat/internal/session"
	"github.com/rs/zerolog/log"
)

// app is the set of collaborators one command invocation works with
type app struct {
	db        *sql.DB
	registry  *internal.Registry
	store     *internal.Storage
	backend   *internal.BackendClient
	directory session.NamespaceDirectory
	ctrl      *session.Controller
}

// openApp opens the database and wires the session controller. The
// selection persisted by the previous run is restored.
func openApp(view session.View) (*app, error) {
	if err := dataPaths.EnsureBase(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := internal.OpenDatabase(dataPaths.DatabasePath)
	if err != nil {
		return nil, err
	}

	creds := credentialSource()
	gate := internal.NewCredentialGate(creds)

	opts := []internal.BackendOption{}
	if timeout := config.GetDuration(keyTimeout); timeout > 0 {
		opts = append(opts, internal.WithHTTPClient(newHTTPClient(timeout)))
	}
	if rps := config.GetFloat64(keyRateLimit); rps > 0 {
		opts = append(opts, internal.WithRateLimit(rps, 1))
	}
	backend := internal.NewBackendClient(config.GetString(keyEndpoint), opts...)

	var directory session.NamespaceDirectory
	if configured := config.GetStringSlice(keyNamespaces); len(configured) > 0 {
		directory = internal.StaticDirectory(configured)
	} else {
		cache := internal.NewCacheManager(dataPaths.CacheDir)
		directory = internal.NewDirectory(backend, gate, cache, backend.Endpoint(), config.GetDuration(keyNamespaceTTL))
	}

	a := &app{
		db:        db,
		registry:  internal.NewRegistry(db),
		store:     internal.NewStorage(db),
		backend:   backend,
		directory: directory,
	}

	ctrl, err := session.NewController(session.Options{
		Directory:             directory,
		Registry:              a.registry,
		Store:                 a.store,
		Backend:               backend,
		Credentials:           creds,
		View:                  view,
		Temperature:           config.GetFloat64(keyTemperature),
		ReturnSourceDocuments: config.GetBool(keySources),
		CancelOnSwitch:        config.GetBool(keyCancelSwitch),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ctrl.Start(); err != nil {
		_ = db.Close()
		return nil, err
	}
	a.ctrl = ctrl

	log.Debug().
		Str("database", dataPaths.DatabasePath).
		Str("namespace", ctrl.Selection().Namespace).
		Str("chat_id", ctrl.Selection().ChatID).
		Msg("Session restored")
	return a, nil
}

// refreshNamespaces makes the next namespace listing bypass the cache
func (a *app) refreshNamespaces() {
	if d, ok := a.directory.(*internal.Directory); ok {
		d.ForceRefresh()
	}
}

// transcript loads a chat together with its stored conversation
func (a *app) transcript(chatID string) (*internal.Transcript, error) {
	chat, err := a.registry.Chat(chatID)
	if err != nil {
		return nil, err
	}
	conv, _, err := a.store.Get(chatID)
	if err != nil {
		return nil, err
	}
	return &internal.Transcript{Chat: *chat, Conversation: conv}, nil
}

func (a *app) Close() {
	if a.ctrl != nil {
		a.ctrl.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

// resolveChat expands a chat id prefix within the chats of namespace
func resolveChat(chats []internal.ChatSession, ref string) (string, error) {
	var match string
	for _, c := range chats {
		if c.ChatID == ref {
			return ref, nil
		}
		if len(ref) >= 4 && strings.HasPrefix(c.ChatID, ref) {
			if match != "" {
				return "", fmt.Errorf("chat id %q is ambiguous", ref)
			}
			match = c.ChatID
		}
	}
	if match == "" {
		return "", fmt.Errorf("chat %q not found in the selected namespace", ref)
	}
	return match, nil
}

// requireNamespace returns the selected namespace or an actionable error
func (a *app) requireNamespace() (string, error) {
	ns := a.ctrl.Selection().Namespace
	if ns == "" {
		return "", fmt.Errorf("no namespace selected (run 'ragchat namespaces use <namespace>')")
	}
	return ns, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
