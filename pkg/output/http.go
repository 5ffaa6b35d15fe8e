package output

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// HTTPOutput sends entries to a remote URL via POST.
type HTTPOutput struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewHTTPOutput(url string, headers map[string]string) *HTTPOutput {
	return &HTTPOutput{
		url:     url,
		headers: headers,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (h *HTTPOutput) WriteBatch(entries [][]byte) error {
	// Newline delimited body.
	joined := bytes.Join(entries, []byte("\n"))

	req, err := http.NewRequest(http.MethodPost, h.url, bytes.NewReader(joined))
	if err != nil {
		return fmt.Errorf("http output: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http output failed with status: %d", resp.StatusCode)
	}

	return nil
}
