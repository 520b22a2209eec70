package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
)

// FilePeer reads the peer's shard file directly. bbolt allows this only
// while no process holds the file's write lock, so this reader suits
// single-replica runs and summaries taken while the peer is down.
type FilePeer struct {
	path string
}

// NewFilePeer creates a file-based peer reader for the shard at path.
func NewFilePeer(path string) *FilePeer {
	return &FilePeer{path: path}
}

func (p *FilePeer) Summarize(_ context.Context, fromMS, toMS int64) (model.SummaryResponse, error) {
	return summarizePath(p.path, fromMS, toMS)
}

// HTTPPeer asks the live peer replica for its own-shard totals via the
// internal summary endpoint. Range bounds travel as epoch milliseconds so no
// precision is lost re-encoding timestamps.
type HTTPPeer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPeer creates a peer reader for the replica at baseURL.
func NewHTTPPeer(baseURL string) *HTTPPeer {
	return &HTTPPeer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func (p *HTTPPeer) Summarize(ctx context.Context, fromMS, toMS int64) (model.SummaryResponse, error) {
	url := p.baseURL + "/internal/payments-summary?from=" +
		strconv.FormatInt(fromMS, 10) + "&to=" + strconv.FormatInt(toMS, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ZeroSummary(), fmt.Errorf("build peer request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.ZeroSummary(), fmt.Errorf("peer summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return model.ZeroSummary(), fmt.Errorf("peer summary: unexpected status %d", resp.StatusCode)
	}

	var sum model.SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return model.ZeroSummary(), fmt.Errorf("decode peer summary: %w", err)
	}
	return sum, nil
}
