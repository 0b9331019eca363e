// internal/infra/channel/push.go
package channel

import (
	"context"
	"fmt"
	"strconv"

	domainChannel "shift_escalation_engine/internal/domain/channel"

	"gopkg.in/telebot.v3"
)

// TelebotPushAdapter implements the push channel over the
// gopkg.in/telebot.v3 library. The recipient is the staff member's chat
// id rendered as a decimal string.
type TelebotPushAdapter struct {
	bot *telebot.Bot
}

func NewTelebotPushAdapter(b *telebot.Bot) *TelebotPushAdapter {
	return &TelebotPushAdapter{bot: b}
}

func (a *TelebotPushAdapter) Send(ctx context.Context, recipient, message string) domainChannel.SendResult {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		// Invalid recipient format is a dispatch failure, not a panic;
		// the executor's retry logic stays channel-agnostic.
		return domainChannel.SendResult{Success: false, Err: fmt.Errorf("invalid push recipient %q: %w", recipient, err)}
	}
	msg, err := a.bot.Send(&telebot.User{ID: chatID}, message)
	if err != nil {
		return domainChannel.SendResult{Success: false, Err: err}
	}
	return domainChannel.SendResult{Success: true, ProviderMessageID: strconv.Itoa(msg.ID)}
}
