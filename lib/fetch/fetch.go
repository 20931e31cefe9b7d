package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"superdb/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

// Client fetches and parses html pages.
//
// note: fault injection point
type Client interface {
	Document(ctx context.Context, link string) (*goquery.Document, error)
}

// StatusError is returned when the server answers with a 4xx or 5xx status
// after all retries are exhausted.
type StatusError struct {
	Url    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.Url, e.Status)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.Status == http.StatusNotFound
}

type Options struct {
	// BaseUrl is used for relative links.
	BaseUrl   string
	UserAgent string
	Timeout   time.Duration

	// Retries is the number of attempts made after the first one fails with a
	// transport error, 429 or 5xx.
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	// RequestsPerSecond is shared by every goroutine using the client,
	// zero disables rate limiting.
	RequestsPerSecond float64

	// CloudflareBypass wraps the transport with browser-like TLS settings.
	CloudflareBypass bool

	// Output receives a dump of every http exchange when set.
	Output restyutil.InstrumentOutput
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

func DefaultOptions() Options {
	return Options{
		UserAgent:         defaultUserAgent,
		Timeout:           time.Second * 30,
		Retries:           3,
		RetryWait:         time.Second,
		RetryMaxWait:      time.Second * 8,
		RequestsPerSecond: 4,
		CloudflareBypass:  true,
	}
}

type HttpClient struct {
	http *resty.Client
}

func NewClient(opts Options) *HttpClient {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	// resty backs off exponentially with jitter between the two waits
	client.SetRetryCount(opts.Retries)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryMaxWait)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return res.StatusCode() == http.StatusTooManyRequests ||
			res.StatusCode() >= http.StatusInternalServerError
	})

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(client, otel.Tracer("superdb/fetch"), opts.Output)

	return &HttpClient{http: client}
}

// Document GETs `link` and parses the body as html.
func (c *HttpClient) Document(ctx context.Context, link string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", link, err)
	}
	if res.IsError() {
		return nil, &StatusError{Url: link, Status: res.StatusCode()}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", link, err)
	}
	return doc, nil
}
