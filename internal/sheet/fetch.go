package sheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetch downloads the CSV export from the spreadsheet URL and parses it.
// A non-200 response is an error carrying the status and body; the sheet is
// a public export, so anything but 200 means the URL or sharing settings are
// wrong rather than a request the caller should vary.
func Fetch(ctx context.Context, client *http.Client, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create sheet request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch sheet: status %d: %s", resp.StatusCode, string(body))
	}

	t, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse sheet: %w", err)
	}
	return t, nil
}
