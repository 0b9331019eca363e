// internal/infra/channel/resolution_handlers.go
package channel

import (
	"context"
	"fmt"

	"shift_escalation_engine/internal/app"

	"gopkg.in/telebot.v3"
)

// RegisterResponseHandlers wires push-channel replies into escalation
// resolution. Any message from a staff chat counts as a response to that
// staff member's active escalation; replies with nothing in flight are
// acknowledged and ignored.
func RegisterResponseHandlers(ctx context.Context, b *telebot.Bot, svc app.EscalationExecutor) {
	b.Handle(telebot.OnText, func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		if err := svc.ResolveByPushReply(ctx, sender.ID); err != nil {
			c.Bot().OnError(fmt.Errorf("error correlating push reply from chat %d: %w", sender.ID, err), c)
			return c.Send("Sorry, something went wrong recording your response. Please contact your supervisor.")
		}
		return c.Send("Thanks, your response has been recorded.")
	})
}
