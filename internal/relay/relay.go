// Package relay moves model output from an upstream fragment source to a
// client-facing writer.
package relay

import (
	"errors"

	"supportchat/internal/models"
)

// NoUserMessageText is the body returned to clients whose conversation has
// no user message.
const NoUserMessageText = "No user message found"

var (
	ErrNoUserMessage = errors.New("no user message found")
	ErrUpstream      = errors.New("upstream model error")
)

// LastUserMessage returns the most recent message authored by the user.
// The input slice is left untouched.
func LastUserMessage(msgs []models.ChatMessage) (models.ChatMessage, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleUser {
			return msgs[i], nil
		}
	}
	return models.ChatMessage{}, ErrNoUserMessage
}
