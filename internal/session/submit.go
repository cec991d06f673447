package session

import (
	"context"
	"strings"

	"github.com/iksnae/ragchat/internal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const emptyQuestionNotice = "Please input a question"

// Turn is the outcome of a successful submit
type Turn struct {
	ChatID    string
	Namespace string
	Question  string
	Answer    internal.ConversationMessage
	// Applied is false when the chat was deleted before the answer arrived
	Applied bool
}

// requestToken pins a submit to the chat it was asked in
type requestToken struct {
	chatID    string
	namespace string
	// snapshot is what the user sees, base is what gets stored
	snapshot  internal.Conversation
	base      internal.Conversation
	request   internal.ChatRequest
}

// Submit asks question in the selected chat and blocks until the backend
// answers, the submit fails, or ctx is cancelled. The user message is
// appended before the backend is called and stays visible on failure, but
// only answered questions are stored or sent as history.
func (c *Controller) Submit(ctx context.Context, question string) (*Turn, error) {
	question = strings.TrimSpace(question)

	c.mu.Lock()
	if question == "" {
		c.notice = emptyQuestionNotice
		c.mu.Unlock()
		return nil, internal.ErrEmptyQuestion
	}
	chatID := c.sel.ChatID
	if chatID == "" {
		c.mu.Unlock()
		return nil, internal.ErrNoChatSelected
	}
	if _, busy := c.inFlight[chatID]; busy {
		c.mu.Unlock()
		return nil, internal.ErrSubmitInFlight
	}

	c.notice = ""
	delete(c.errs, chatID)

	userMsg := internal.ConversationMessage{
		Role: internal.RoleUser,
		Text: question,
	}
	prior := c.committed.Clone()
	base := c.committed.Clone()
	base.Messages = append(base.Messages, userMsg)
	c.working.Messages = append(c.working.Messages, userMsg)

	ctx, cancel := context.WithCancel(ctx)
	token := requestToken{
		chatID:    chatID,
		namespace: c.sel.Namespace,
		snapshot:  c.working.Clone(),
		base:      base,
		request: internal.ChatRequest{
			Question:              question,
			History:               prior.History,
			SelectedChatID:        chatID,
			SelectedNamespace:     c.sel.Namespace,
			ReturnSourceDocuments: c.returnSources,
			ModelTemperature:      c.temperature,
		},
	}
	if token.request.History == nil {
		token.request.History = []internal.HistoryPair{}
	}
	c.inFlight[chatID] = &pending{cancel: cancel, snapshot: token.snapshot, committed: prior}
	c.mu.Unlock()

	c.view.ClearInput()
	defer c.finish(chatID, cancel)

	creds, err := c.gate.Check()
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("Submit aborted")
		c.fail(token, err)
		return nil, err
	}

	log.Debug().
		Str("chat_id", chatID).
		Str("namespace", token.namespace).
		Int("history", len(token.request.History)).
		Msg("Dispatching question")

	answer, err := c.backend.Ask(ctx, creds, token.request)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug().Str("chat_id", chatID).Msg("Submit cancelled")
			return nil, ctx.Err()
		}
		log.Error().Err(err).Str("chat_id", chatID).Msg("Backend call failed")
		c.fail(token, err)
		return nil, err
	}

	return c.reconcile(token, answer)
}

// reconcile writes an answer back to the chat captured in token
func (c *Controller) reconcile(token requestToken, answer *internal.Answer) (*Turn, error) {
	msg := internal.ConversationMessage{
		Role:            internal.RoleAssistant,
		Text:            answer.Text,
		SourceDocuments: answer.SourceDocuments,
	}
	turn := &Turn{
		ChatID:    token.chatID,
		Namespace: token.namespace,
		Question:  token.request.Question,
		Answer:    msg,
	}

	exists, err := c.registry.Exists(token.chatID)
	if err != nil {
		err = errors.Wrap(err, "failed to check chat")
		c.fail(token, err)
		return nil, err
	}
	if !exists {
		log.Warn().Str("chat_id", token.chatID).Msg("Discarding answer for deleted chat")
		return turn, nil
	}

	next := token.base.Clone()
	next.Messages = append(next.Messages, msg)
	next.History = append(next.History, internal.HistoryPair{
		Question: token.request.Question,
		Answer:   answer.Text,
	})

	if err := c.store.Update(token.chatID, next); err != nil {
		if errors.Is(err, internal.ErrChatNotFound) {
			log.Warn().Str("chat_id", token.chatID).Msg("Discarding answer for deleted chat")
			return turn, nil
		}
		c.fail(token, err)
		return nil, err
	}
	turn.Applied = true

	c.mu.Lock()
	if c.sel.ChatID == token.chatID {
		shown := token.snapshot.Clone()
		shown.Messages = append(shown.Messages, msg)
		shown.History = next.Clone().History
		c.working = shown
		c.committed = next
		c.loadErr = nil
	}
	c.mu.Unlock()

	return turn, nil
}

// fail records err as the banner of the origin chat
func (c *Controller) fail(token requestToken, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[token.chatID] = err.Error()
}

// finish releases the in-flight slot on every exit path
func (c *Controller) finish(chatID string, cancel context.CancelFunc) {
	c.mu.Lock()
	delete(c.inFlight, chatID)
	c.mu.Unlock()
	cancel()
	c.view.ScrollToBottom()
}

// Cancel aborts the pending submit of the selected chat. It reports whether
// there was one.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.inFlight[c.sel.ChatID]
	if ok {
		p.cancel()
	}
	return ok
}

// Close cancels every pending submit
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.inFlight {
		p.cancel()
	}
}
