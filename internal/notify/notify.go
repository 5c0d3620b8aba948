package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgnsrekt/resgrab/internal/types"
)

// SummaryMessage renders the run tally sent when a run finishes.
func SummaryMessage(s types.RunSummary) string {
	return fmt.Sprintf("resgrab %s/%s: %d downloaded, %d failed, %d matched of %d requests (%s)",
		s.Origin, s.SearchTerm, s.Succeeded, s.Failed, s.Matched, s.Observed, s.TargetURL)
}

// SendSummary posts the run tally to an NTFY endpoint.
func SendSummary(ctx context.Context, client *http.Client, endpoint string, s types.RunSummary) error {
	return Send(ctx, client, endpoint, SummaryMessage(s))
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
