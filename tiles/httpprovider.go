package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const DefaultURLTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

const defaultUserAgent = "Mozilla/5.0 (compatible; staticmap/1.0; +https://github.com/olablt/staticmap)"

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a tile response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// ExpandURL substitutes the {z}, {x} and {y} tokens of a tile URL template.
func ExpandURL(template string, tile Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(tile.Zoom),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
	).Replace(template)
}

type HTTPTileProvider struct {
	client   Doer
	template string
	headers  http.Header
	timeout  time.Duration
	reverseY bool
	logger   *slog.Logger
}

// NewHTTPTileProvider returns a provider downloading tiles from a {z}/{x}/{y}
// URL template. A nil client means http.DefaultClient.
func NewHTTPTileProvider(client Doer, template string) *HTTPTileProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if template == "" {
		template = DefaultURLTemplate
	}
	p := &HTTPTileProvider{
		client:   client,
		template: template,
		headers:  http.Header{},
		logger:   slog.Default(),
	}
	p.headers.Set("User-Agent", defaultUserAgent)
	p.headers.Set("Accept", "image/webp,image/png,image/*;q=0.8,*/*;q=0.5")
	return p
}

// SetHeaders adds extra request headers; they replace the defaults of the same name.
func (p *HTTPTileProvider) SetHeaders(headers map[string]string) {
	for k, v := range headers {
		p.headers.Set(k, v)
	}
}

// SetTimeout sets the per-request timeout. Zero means no timeout.
func (p *HTTPTileProvider) SetTimeout(d time.Duration) {
	p.timeout = d
}

// SetReverseY switches row numbering to the TMS convention.
func (p *HTTPTileProvider) SetReverseY(flag bool) {
	p.reverseY = flag
}

func (p *HTTPTileProvider) SetLogger(l *slog.Logger) {
	p.logger = l
}

// GetTileURL returns the URL for downloading the map tile
func (p *HTTPTileProvider) GetTileURL(tile Tile) string {
	tile = tile.Wrap()
	if p.reverseY {
		tile = tile.FlipY()
	}
	return ExpandURL(p.template, tile)
}

func (p *HTTPTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	url := p.GetTileURL(tile)
	p.logger.Debug("requesting tile", "url", url)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header = p.headers.Clone()

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return img, nil
}
