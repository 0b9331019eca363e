// internal/infra/channel/voice.go
package channel

import (
	"context"
	"net/http"

	domainChannel "shift_escalation_engine/internal/domain/channel"
)

// VoiceAdapter places automated calls through the voice provider REST
// API. The rendered message becomes the text-to-speech script.
type VoiceAdapter struct {
	client   *http.Client
	endpoint string
	token    string
	from     string
}

func NewVoiceAdapter(endpoint, token, from string) *VoiceAdapter {
	return &VoiceAdapter{
		client:   &http.Client{Timeout: defaultProviderTimeout},
		endpoint: endpoint,
		token:    token,
		from:     from,
	}
}

func (a *VoiceAdapter) Send(ctx context.Context, recipient, message string) domainChannel.SendResult {
	payload := map[string]string{
		"to":   recipient,
		"from": a.from,
		"say":  message,
	}
	return postProvider(ctx, a.client, a.endpoint, a.token, payload)
}
