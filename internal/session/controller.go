// Package session holds the conversation session controller: it tracks the
// active namespace and chat, keeps the working conversation of the selected
// chat, runs the submit protocol against the answering backend and writes
// answers back to the conversation store.
package session

import (
	"context"
	"math"
	"sync"

	"github.com/iksnae/ragchat/internal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NamespaceDirectory enumerates namespaces
type NamespaceDirectory interface {
	Namespaces(ctx context.Context) ([]string, error)
	Loading() bool
}

// ChatRegistry owns chat sessions and the persisted selection
type ChatRegistry interface {
	CreateChat(namespace string) (*internal.ChatSession, error)
	DeleteChat(chatID string) error
	RenameChat(chatID, name string) error
	FilteredChats(namespace string) ([]internal.ChatSession, error)
	Exists(chatID string) (bool, error)
	Selection() (internal.Selection, error)
	SetSelection(sel internal.Selection) error
}

// ConversationStore maps chat ids to conversations
type ConversationStore interface {
	Get(chatID string) (internal.Conversation, bool, error)
	Update(chatID string, conv internal.Conversation) error
}

// Backend answers one question
type Backend interface {
	Ask(ctx context.Context, creds internal.Credentials, req internal.ChatRequest) (*internal.Answer, error)
}

// View receives presentation side effects of the submit protocol
type View interface {
	ClearInput()
	ScrollToBottom()
}

type nopView struct{}

func (nopView) ClearInput()     {}
func (nopView) ScrollToBottom() {}

// Options wires a Controller to its collaborators
type Options struct {
	Directory   NamespaceDirectory
	Registry    ChatRegistry
	Store       ConversationStore
	Backend     Backend
	Credentials internal.CredentialSource
	View        View

	// Temperature is sent with every question; use
	// internal.DefaultTemperature when unset by configuration.
	Temperature           float64
	ReturnSourceDocuments bool
	// CancelOnSwitch cancels a pending submit when the user leaves its chat.
	// When false the answer is still stored in the chat it was asked in.
	CancelOnSwitch bool
}

// pending is a submit waiting for the backend
type pending struct {
	cancel    context.CancelFunc
	snapshot  internal.Conversation
	committed internal.Conversation
}

// Controller is the session context shared by all views. Its state changes
// only through its methods.
type Controller struct {
	directory NamespaceDirectory
	registry  ChatRegistry
	store     ConversationStore
	backend   Backend
	gate      *internal.CredentialGate
	view      View

	cancelOnSwitch bool

	mu            sync.Mutex
	sel           internal.Selection
	chats         []internal.ChatSession
	working       internal.Conversation
	// committed is the stored part of working. Unanswered questions are
	// shown in working but never written back.
	committed     internal.Conversation
	loadErr       error
	notice        string
	errs          map[string]string
	inFlight      map[string]*pending
	temperature   float64
	returnSources bool
}

// NewController creates a controller. Call Start before use.
func NewController(opts Options) (*Controller, error) {
	if opts.Registry == nil || opts.Store == nil || opts.Backend == nil {
		return nil, errors.New("registry, store and backend are required")
	}
	if err := validateTemperature(opts.Temperature); err != nil {
		return nil, err
	}
	view := opts.View
	if view == nil {
		view = nopView{}
	}
	directory := opts.Directory
	if directory == nil {
		directory = internal.StaticDirectory(nil)
	}

	return &Controller{
		directory:      directory,
		registry:       opts.Registry,
		store:          opts.Store,
		backend:        opts.Backend,
		gate:           internal.NewCredentialGate(opts.Credentials),
		view:           view,
		cancelOnSwitch: opts.CancelOnSwitch,
		errs:           make(map[string]string),
		inFlight:       make(map[string]*pending),
		temperature:    opts.Temperature,
		returnSources:  opts.ReturnSourceDocuments,
	}, nil
}

// Start restores the persisted selection and loads the selected chat
func (c *Controller) Start() error {
	persisted, err := c.registry.Selection()
	if err != nil {
		return errors.Wrap(err, "failed to read selection")
	}

	chats, err := c.filtered(persisted.Namespace)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = persisted
	c.applyLocked(NamespaceChanged{Namespace: persisted.Namespace, Chats: chats}, true)
	return nil
}

// Namespaces lists the namespaces of the search index
func (c *Controller) Namespaces(ctx context.Context) ([]string, error) {
	return c.directory.Namespaces(ctx)
}

// NamespacesLoading reports whether the directory is fetching
func (c *Controller) NamespacesLoading() bool {
	return c.directory.Loading()
}

// SelectNamespace switches the active namespace
func (c *Controller) SelectNamespace(namespace string) error {
	chats, err := c.filtered(namespace)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(NamespaceChanged{Namespace: namespace, Chats: chats}, false)
	return nil
}

// CreateChat adds a chat to the active namespace and selects it
func (c *Controller) CreateChat() (*internal.ChatSession, error) {
	c.mu.Lock()
	namespace := c.sel.Namespace
	c.mu.Unlock()
	if namespace == "" {
		return nil, errors.New("select a namespace before creating a chat")
	}

	chat, err := c.registry.CreateChat(namespace)
	if err != nil {
		return nil, err
	}
	chats, err := c.filtered(namespace)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.Namespace != namespace {
		// namespace changed while creating; the chat exists but is not shown
		return chat, nil
	}
	c.applyLocked(ChatCreated{Chats: chats, ChatID: chat.ChatID}, false)
	return chat, nil
}

// DeleteChat removes a chat, cancelling any submit pending for it
func (c *Controller) DeleteChat(chatID string) error {
	if err := c.registry.DeleteChat(chatID); err != nil {
		return err
	}

	c.mu.Lock()
	if p, ok := c.inFlight[chatID]; ok {
		p.cancel()
	}
	delete(c.errs, chatID)
	namespace := c.sel.Namespace
	c.mu.Unlock()

	return c.refresh(namespace)
}

// RenameChat changes a chat's display name
func (c *Controller) RenameChat(chatID, name string) error {
	if err := c.registry.RenameChat(chatID, name); err != nil {
		return err
	}
	c.mu.Lock()
	namespace := c.sel.Namespace
	c.mu.Unlock()
	return c.refresh(namespace)
}

// RefreshChats re-reads the chat list after external changes
func (c *Controller) RefreshChats() error {
	c.mu.Lock()
	namespace := c.sel.Namespace
	c.mu.Unlock()
	return c.refresh(namespace)
}

// SelectChat makes chatID the active chat. It must belong to the active
// namespace.
func (c *Controller) SelectChat(chatID string) error {
	c.mu.Lock()
	namespace := c.sel.Namespace
	c.mu.Unlock()

	chats, err := c.filtered(namespace)
	if err != nil {
		return err
	}
	if !containsChat(chats, chatID) {
		return internal.ErrUnknownChat
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.Namespace != namespace {
		return internal.ErrUnknownChat
	}
	c.applyLocked(UserSelected{Chats: chats, ChatID: chatID}, false)
	return nil
}

// Reload re-reads the selected chat's conversation from the store
func (c *Controller) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.ChatID != "" {
		c.loadLocked(c.sel.ChatID)
	}
}

func (c *Controller) refresh(namespace string) error {
	chats, err := c.filtered(namespace)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.Namespace != namespace {
		return nil
	}
	c.applyLocked(ChatListChanged{Chats: chats}, false)
	return nil
}

func (c *Controller) filtered(namespace string) ([]internal.ChatSession, error) {
	if namespace == "" {
		return nil, nil
	}
	chats, err := c.registry.FilteredChats(namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list chats of %s", namespace)
	}
	return chats, nil
}

// applyLocked runs the selection reducer and reloads the working
// conversation when the selected chat changed
func (c *Controller) applyLocked(ev Event, forceReload bool) {
	prev := c.sel
	next := Reduce(prev, ev)

	switch e := ev.(type) {
	case NamespaceChanged:
		c.chats = e.Chats
	case ChatCreated:
		c.chats = e.Chats
	case ChatListChanged:
		c.chats = e.Chats
	case UserSelected:
		c.chats = e.Chats
	}
	c.sel = next

	if prev.ChatID != next.ChatID && prev.ChatID != "" && c.cancelOnSwitch {
		if p, ok := c.inFlight[prev.ChatID]; ok {
			log.Debug().Str("chat_id", prev.ChatID).Msg("Cancelling pending submit on chat switch")
			p.cancel()
		}
	}

	if next.ChatID == "" {
		c.working = internal.Conversation{}
		c.committed = internal.Conversation{}
		c.loadErr = nil
	} else if forceReload || prev.ChatID != next.ChatID {
		c.loadLocked(next.ChatID)
	}

	if prev != next || forceReload {
		if err := c.registry.SetSelection(next); err != nil {
			log.Warn().Err(err).Msg("Failed to persist selection")
		}
	}
}

// loadLocked replaces the working conversation with the stored one. Read
// failures are logged and leave an empty conversation; they never affect
// other chats.
func (c *Controller) loadLocked(chatID string) {
	if p, ok := c.inFlight[chatID]; ok {
		c.working = p.snapshot.Clone()
		c.committed = p.committed.Clone()
		c.loadErr = nil
		return
	}

	conv, found, err := c.store.Get(chatID)
	switch {
	case err != nil:
		c.loadErr = err
	case !found || len(conv.Messages) == 0:
		c.loadErr = &internal.StoreReadError{ChatID: chatID, Err: errors.New("no conversation found")}
	default:
		c.working = internal.Conversation{
			Messages: conv.Messages,
			History:  internal.HistoryFromLog(conv.Messages),
		}
		c.committed = c.working.Clone()
		c.loadErr = nil
		return
	}

	log.Error().Err(c.loadErr).Str("chat_id", chatID).Msg("Failed to fetch chat history")
	c.working = internal.Conversation{}
	c.committed = internal.Conversation{}
}

// Selection returns the active namespace and chat
func (c *Controller) Selection() internal.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// Chats returns the chats of the active namespace
func (c *Controller) Chats() []internal.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]internal.ChatSession(nil), c.chats...)
}

// Conversation returns a copy of the working conversation
func (c *Controller) Conversation() internal.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.working.Clone()
}

// LoadError returns the error from the last failed load of the selected chat
func (c *Controller) LoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Busy reports whether the selected chat has a submit pending
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[c.sel.ChatID]
	return ok
}

// Error returns the error banner for the selected chat, if any
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[c.sel.ChatID]
}

// Notice returns the last input validation message
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// Temperature returns the model temperature sent with each question
func (c *Controller) Temperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temperature
}

// SetTemperature changes the model temperature, which must be in [0,1]
func (c *Controller) SetTemperature(t float64) error {
	if err := validateTemperature(t); err != nil {
		return err
	}
	c.mu.Lock()
	c.temperature = t
	c.mu.Unlock()
	return nil
}

// ReturnSourceDocuments reports whether answers include their sources
func (c *Controller) ReturnSourceDocuments() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.returnSources
}

// SetReturnSourceDocuments toggles source documents in answers
func (c *Controller) SetReturnSourceDocuments(on bool) {
	c.mu.Lock()
	c.returnSources = on
	c.mu.Unlock()
}

// Credentials exposes the credential gate
func (c *Controller) Credentials() *internal.CredentialGate {
	return c.gate
}

func validateTemperature(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return internal.ErrInvalidTemperature
	}
	return nil
}
