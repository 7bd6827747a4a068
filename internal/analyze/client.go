// Package analyze uploads a meal photo to the image-analysis endpoint.
package analyze

import (
	"bytes"
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/platescan/platescan/internal/errors"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

// MaxResponseBytes bounds a reply body. A larger 2xx reply is an error,
// never a truncated payload.
const MaxResponseBytes = 4 << 20

// Client posts one image per call to a fixed analysis endpoint.
// There is no retry, backoff or request queue: a failed call is reported to the caller.
type Client struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Result is a successful analysis reply.
type Result struct {
	RequestID string
	Body      []byte
}

// New creates a Client with the given fixed timeout.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		URL:     url,
		Timeout: timeout,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze uploads image as a JPEG multipart field and returns the raw reply body.
// Non-2xx replies become UPSTREAM_STATUS errors carrying the body text;
// transport failures become UPSTREAM_UNAVAILABLE; deadline overruns become ANALYZE_TIMEOUT.
func (c *Client) Analyze(ctx context.Context, image io.Reader, filename string) (*Result, error) {
	if c.URL == "" {
		return nil, errors.NewInvalidRequest("analyze_url is not configured")
	}
	if filename == "" {
		filename = fmt.Sprintf("photo-%d.jpg", time.Now().UnixMilli())
	}

	body, contentType, err := buildForm(image, filename)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("read image: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, body)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid analyze_url: %v", err))
	}
	requestID := newRequestID()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: c.Timeout}
	}

	resp, err := hc.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewAnalyzeTimeout(c.Timeout)
		}
		return nil, errors.NewUpstreamUnavailable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewAnalyzeTimeout(c.Timeout)
		}
		return nil, errors.NewUpstreamUnavailable(err)
	}
	oversized := len(data) > MaxResponseBytes
	if oversized {
		data = data[:MaxResponseBytes]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewUpstreamStatus(resp.StatusCode, string(data))
	}
	if oversized {
		return nil, errors.NewReplyTooLarge(MaxResponseBytes)
	}

	return &Result{RequestID: requestID, Body: data}, nil
}

// buildForm writes the single-field multipart body.
func buildForm(image io.Reader, filename string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, filename))
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// isTimeout reports whether err came from the client timeout or a context deadline.
func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	if stderrors.As(err, &te) && te.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func newRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
