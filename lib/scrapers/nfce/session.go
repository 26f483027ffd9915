package nfce

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"nfce-backend/lib/restyutil"
	"nfce-backend/lib/telemetry"
	"os"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"
	accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	DefaultConnectTimeout = time.Second * 15
	// the postback pages take noticeably longer to render than the landing page
	DefaultGetReadTimeout  = time.Second * 30
	DefaultPostReadTimeout = time.Second * 40

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	DefaultRateLimit rate.Limit = 2
	defaultRateBurst            = 2
)

type SessionOptions struct {
	// ProxyUrl routes both http and https traffic through the given proxy.
	ProxyUrl string
	// RootCAs extends the system trust store, nil means system roots only.
	// Certificate validation is never disabled.
	RootCAs *x509.CertPool

	// zero values fall back to the defaults above
	Retry           RetryPolicy
	ConnectTimeout  time.Duration
	GetReadTimeout  time.Duration
	PostReadTimeout time.Duration
	RateLimit       rate.Limit

	// if set, every response is dumped to this output
	DumpOutput restyutil.InstrumentOutput
	Telemetry  telemetry.API
}

// Session is an HTTP client with its own cookie jar, one per extraction so
// that the view-state tokens stay valid across the postback sequence.
type Session struct {
	http            *resty.Client
	transport       *http.Transport
	policy          RetryPolicy
	getReadTimeout  time.Duration
	postReadTimeout time.Duration
	tel             telemetry.API
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

// LoadCertPool returns the system trust store with the certificates of the
// PEM bundle at path appended.
func LoadCertPool(path string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}
	if !pool.AppendCertsFromPEM(contents) {
		return nil, fmt.Errorf("ca bundle %s: no certificates found", path)
	}
	return pool, nil
}

func NewSession(opts SessionOptions) (*Session, error) {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	policy := opts.Retry.withDefaults()
	connectTimeout := durationOr(opts.ConnectTimeout, DefaultConnectTimeout)
	limit := opts.RateLimit
	if limit == 0 {
		limit = DefaultRateLimit
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: time.Second * 30,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     time.Second * 90,
	}
	if opts.ProxyUrl != "" {
		proxy, err := url.Parse(opts.ProxyUrl)
		if err != nil || proxy.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", opts.ProxyUrl)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	roundTripper := cloudflarebp.AddCloudFlareByPass(transport, cloudflarebp.Options{
		AddMissingHeaders: true,
		Headers: map[string]string{
			"Accept":          accept,
			"Accept-Language": acceptLanguage,
			"User-Agent":      userAgent,
		},
	})
	// the bypass swaps in its own tls config, the trust policy is applied on top of it
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.RootCAs = opts.RootCAs
	transport.TLSClientConfig.InsecureSkipVerify = false

	client := resty.NewWithClient(&http.Client{
		Transport: attemptTimeoutTransport{inner: roundTripper},
	})
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetLogger(telemetry.RestyLogger{})
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept-Language", acceptLanguage)
	client.SetHeader("Accept", accept)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	client.SetRetryCount(policy.Total)
	client.SetRetryWaitTime(policy.Backoff)
	client.SetRetryMaxWaitTime(policy.Backoff * time.Duration(policy.Total))
	client.SetRetryAfter(func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
		return policy.wait(res.Request.Attempt), nil
	})

	rateLimiter := rate.NewLimiter(limit, defaultRateBurst)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "scrapers/nfce/http")
	restyutil.DumpMessages(client, restyutil.MessagePrefix("nfce"), opts.DumpOutput)

	return &Session{
		http:            client,
		transport:       transport,
		policy:          policy,
		getReadTimeout:  durationOr(opts.GetReadTimeout, DefaultGetReadTimeout),
		postReadTimeout: durationOr(opts.PostReadTimeout, DefaultPostReadTimeout),
		tel:             tel,
	}, nil
}

// Close releases the pooled connections of the session.
func (s *Session) Close() {
	s.transport.CloseIdleConnections()
}

func (s *Session) request(ctx context.Context, readTimeout time.Duration) *resty.Request {
	budget := newRetryBudget(s.policy, s.tel)
	return s.http.R().
		SetContext(withReadTimeout(ctx, readTimeout)).
		AddRetryCondition(budget.shouldRetry)
}

func (s *Session) Get(ctx context.Context, link string) (*resty.Response, error) {
	return s.request(ctx, s.getReadTimeout).Get(link)
}

func (s *Session) PostForm(ctx context.Context, link string, form url.Values) (*resty.Response, error) {
	return s.request(ctx, s.postReadTimeout).
		SetFormDataFromValues(form).
		Post(link)
}
