// internal/infra/channel/sms.go
package channel

import (
	"context"
	"net/http"

	domainChannel "shift_escalation_engine/internal/domain/channel"
)

// SMSAdapter dispatches text messages through the organization's SMS
// provider REST API.
type SMSAdapter struct {
	client   *http.Client
	endpoint string
	token    string
	from     string
}

func NewSMSAdapter(endpoint, token, from string) *SMSAdapter {
	return &SMSAdapter{
		client:   &http.Client{Timeout: defaultProviderTimeout},
		endpoint: endpoint,
		token:    token,
		from:     from,
	}
}

func (a *SMSAdapter) Send(ctx context.Context, recipient, message string) domainChannel.SendResult {
	payload := map[string]string{
		"to":   recipient,
		"from": a.from,
		"body": message,
	}
	return postProvider(ctx, a.client, a.endpoint, a.token, payload)
}
