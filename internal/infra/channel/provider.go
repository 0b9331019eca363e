// internal/infra/channel/provider.go
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainChannel "shift_escalation_engine/internal/domain/channel"
)

const defaultProviderTimeout = 15 * time.Second

// postProvider performs the JSON POST shared by the SMS and voice
// providers and converts every failure mode into a structured SendResult.
func postProvider(ctx context.Context, client *http.Client, endpoint, token string, payload any) domainChannel.SendResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return domainChannel.SendResult{Success: false, Err: fmt.Errorf("failed to encode provider payload: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domainChannel.SendResult{Success: false, Err: fmt.Errorf("failed to build provider request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return domainChannel.SendResult{Success: false, Err: fmt.Errorf("provider request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domainChannel.SendResult{Success: false, Err: fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))}
	}

	var out struct {
		MessageID string `json:"message_id"`
	}
	// A missing or malformed body still counts as delivered; the provider
	// accepted the dispatch.
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return domainChannel.SendResult{Success: true, ProviderMessageID: out.MessageID}
}
