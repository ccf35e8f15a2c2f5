// Package httpclient implements the outbound HTTP collaborators of the protocol core: fetching
// request objects by reference and delivering back-channel logout tokens.
package httpclient

import (
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// maxResponseBody bounds how much of any response is read.
	maxResponseBody = 64 << 10

	defaultRequestObjectTimeout = 5 * time.Second
)

// NewPooledClient returns an http.Client over a private pooled transport.
func NewPooledClient() *http.Client {
	return &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		// redirects are not followed; a relying party must answer on the registered URI
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func readBody(r io.Reader, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit))
	return string(b), err
}
