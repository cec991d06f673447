package session

import (
	"context"
	"testing"

	"github.com/iksnae/ragchat/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(Options{})
	assert.Error(t, err)

	h := newHarness(t)
	_, err = NewController(Options{
		Registry:    h.registry,
		Store:       h.store,
		Backend:     h.backend,
		Temperature: 1.5,
	})
	assert.ErrorIs(t, err, internal.ErrInvalidTemperature)
}

func TestStartWithoutSelection(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, internal.Selection{}, h.ctrl.Selection())
	assert.Empty(t, h.ctrl.Chats())
	assert.Empty(t, h.ctrl.Conversation().Messages)
	assert.False(t, h.ctrl.Busy())
}

func TestSelectNamespaceWithoutChats(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.SelectNamespace("alpha"))

	sel := h.ctrl.Selection()
	assert.Equal(t, "alpha", sel.Namespace)
	assert.Empty(t, sel.ChatID)
	assert.Empty(t, h.ctrl.Conversation().Messages)
}

func TestCreateChatRequiresNamespace(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctrl.CreateChat()
	assert.Error(t, err)
}

func TestCreateChatSelectsNewestAndSeedsGreeting(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))

	first := h.newChat(t)
	second := h.newChat(t)

	assert.Equal(t, second, h.ctrl.Selection().ChatID)
	require.Len(t, h.ctrl.Chats(), 2)
	assert.Equal(t, first, h.ctrl.Chats()[0].ChatID)
	assert.Equal(t, "Chat 2", h.ctrl.Chats()[1].DisplayName)

	conv := h.ctrl.Conversation()
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, internal.RoleAssistant, conv.Messages[0].Role)
	assert.Equal(t, "Hi, what would you like to know about alpha?", conv.Messages[0].Text)
	assert.Empty(t, conv.History)
}

func TestSelectNamespaceSelectsFirstChat(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	first := h.newChat(t)
	h.newChat(t)

	require.NoError(t, h.ctrl.SelectNamespace("beta"))
	assert.Empty(t, h.ctrl.Selection().ChatID)

	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	assert.Equal(t, first, h.ctrl.Selection().ChatID)
}

func TestSelectChat(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	first := h.newChat(t)
	h.newChat(t)

	require.NoError(t, h.ctrl.SelectChat(first))
	assert.Equal(t, first, h.ctrl.Selection().ChatID)

	require.NoError(t, h.ctrl.SelectNamespace("beta"))
	other := h.newChat(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))

	err := h.ctrl.SelectChat(other)
	assert.ErrorIs(t, err, internal.ErrUnknownChat)
}

func TestDeleteSelectedChatFallsBackToNewest(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	first := h.newChat(t)
	second := h.newChat(t)
	third := h.newChat(t)

	require.NoError(t, h.ctrl.SelectChat(second))
	require.NoError(t, h.ctrl.DeleteChat(second))
	assert.Equal(t, third, h.ctrl.Selection().ChatID)

	require.NoError(t, h.ctrl.DeleteChat(third))
	assert.Equal(t, first, h.ctrl.Selection().ChatID)

	require.NoError(t, h.ctrl.DeleteChat(first))
	assert.Empty(t, h.ctrl.Selection().ChatID)
	assert.Empty(t, h.ctrl.Conversation().Messages)
}

func TestDeleteOtherChatKeepsSelection(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	first := h.newChat(t)
	second := h.newChat(t)

	require.NoError(t, h.ctrl.DeleteChat(first))
	assert.Equal(t, second, h.ctrl.Selection().ChatID)
	assert.ErrorIs(t, h.ctrl.DeleteChat(first), internal.ErrChatNotFound)
}

func TestRenameChat(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	id := h.newChat(t)

	require.NoError(t, h.ctrl.RenameChat(id, "  Pricing questions "))
	assert.Equal(t, "Pricing questions", h.ctrl.Chats()[0].DisplayName)
	assert.Equal(t, id, h.ctrl.Selection().ChatID)

	assert.Error(t, h.ctrl.RenameChat(id, "   "))
}

func TestStartRestoresPersistedSelection(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	first := h.newChat(t)
	h.newChat(t)
	require.NoError(t, h.ctrl.SelectChat(first))

	restarted, err := NewController(Options{
		Registry:    h.registry,
		Store:       h.store,
		Backend:     h.backend,
		Credentials: fullCredentials,
		Temperature: internal.DefaultTemperature,
	})
	require.NoError(t, err)
	require.NoError(t, restarted.Start())

	assert.Equal(t, internal.Selection{Namespace: "alpha", ChatID: first}, restarted.Selection())
	assert.Len(t, restarted.Conversation().Messages, 1)
}

func TestRefreshChatsAfterExternalDelete(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	first := h.newChat(t)
	second := h.newChat(t)

	require.NoError(t, h.registry.DeleteChat(second))
	require.NoError(t, h.ctrl.RefreshChats())

	assert.Equal(t, first, h.ctrl.Selection().ChatID)
	assert.Len(t, h.ctrl.Chats(), 1)
}

func TestLoadFailureLeavesEmptyConversation(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	broken := h.newChat(t)
	healthy := h.newChat(t)

	_, err := h.db.Exec("UPDATE messages SET role = 'system' WHERE chat_id = ?", broken)
	require.NoError(t, err)

	require.NoError(t, h.ctrl.SelectChat(broken))
	var readErr *internal.StoreReadError
	assert.ErrorAs(t, h.ctrl.LoadError(), &readErr)
	assert.Empty(t, h.ctrl.Conversation().Messages)

	require.NoError(t, h.ctrl.SelectChat(healthy))
	assert.NoError(t, h.ctrl.LoadError())
	assert.Len(t, h.ctrl.Conversation().Messages, 1)
}

func TestLoadMissingMessagesIsReadError(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.SelectNamespace("alpha"))
	id := h.newChat(t)

	_, err := h.db.Exec("DELETE FROM messages WHERE chat_id = ?", id)
	require.NoError(t, err)

	h.ctrl.Reload()
	assert.Error(t, h.ctrl.LoadError())
	assert.Empty(t, h.ctrl.Conversation().Messages)
}

func TestTemperatureAndSources(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, internal.DefaultTemperature, h.ctrl.Temperature())
	require.NoError(t, h.ctrl.SetTemperature(0))
	assert.Equal(t, 0.0, h.ctrl.Temperature())
	require.NoError(t, h.ctrl.SetTemperature(1))
	assert.ErrorIs(t, h.ctrl.SetTemperature(-0.1), internal.ErrInvalidTemperature)
	assert.ErrorIs(t, h.ctrl.SetTemperature(1.01), internal.ErrInvalidTemperature)
	assert.Equal(t, 1.0, h.ctrl.Temperature())

	assert.False(t, h.ctrl.ReturnSourceDocuments())
	h.ctrl.SetReturnSourceDocuments(true)
	assert.True(t, h.ctrl.ReturnSourceDocuments())
}

func TestNamespacesFromDirectory(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ns, err := h.ctrl.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ns)
	assert.False(t, h.ctrl.NamespacesLoading())
}
