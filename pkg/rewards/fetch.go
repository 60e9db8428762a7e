package rewards

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds how much of any source response is read. Badge
// pages are the largest at well under a megabyte.
const maxBodyBytes = 4 << 20

func fetch(ctx context.Context, client *http.Client, rawURL string, cookies []*http.Cookie) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
