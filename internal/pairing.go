package internal

// PairHistory groups a message log two at a time into history pairs.
// Grouping is positional: roles are not checked. A trailing single
// message is paired with an empty answer.
func PairHistory(messages []ConversationMessage) []HistoryPair {
	pairs := make([]HistoryPair, 0, (len(messages)+1)/2)
	for i := 0; i < len(messages); i += 2 {
		pair := HistoryPair{Question: messages[i].Text}
		if i+1 < len(messages) {
			pair.Answer = messages[i+1].Text
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// HistoryFromLog derives the history for a stored message log. A leading
// assistant message is the chat greeting and is not part of any pair.
func HistoryFromLog(messages []ConversationMessage) []HistoryPair {
	if len(messages) > 0 && messages[0].Role == RoleAssistant {
		messages = messages[1:]
	}
	return PairHistory(messages)
}
