// Package probe checks a deployed stage from the outside: every path and
// method should reach the function and come back with the greeting.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/errgroup"

	"github.com/raywall/terraform-provider-lambdaproxy/function/hello"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 10 * time.Second

	// maxBody bounds how much of each response is kept in the report.
	maxBody = 4096
)

var (
	DefaultPaths   = []string{"/", "/hello", "/any/nested/path"}
	DefaultMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

	ErrNoURL = errors.New("stage url is required")
)

// Doer is the part of *http.Client the probe needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config selects what to request and what counts as a pass.
type Config struct {
	URL          string
	Paths        []string
	Methods      []string
	ExpectStatus int
	ExpectBody   string
	// ExpectGone passes when the stage no longer answers: a transport
	// error or a 403/404.
	ExpectGone  bool
	Concurrency int
	// Attempts per request. Fresh stages take a few seconds to answer.
	Attempts   uint
	RetryDelay time.Duration
	Client     Doer
	Logger     *slog.Logger
}

// Result is the outcome of one method/path pair.
type Result struct {
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   int           `json:"status,omitempty"`
	Body     string        `json:"body,omitempty"`
	Error    string        `json:"error,omitempty"`
	Attempts uint          `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the request met the expectation.
func (r Result) OK() bool {
	return r.Error == ""
}

// Report holds results in method-major, path-minor order.
type Report struct {
	Results []Result `json:"results"`
}

// OK reports whether every request passed.
func (r Report) OK() bool {
	return len(r.Failures()) == 0
}

// Failures returns the results that did not pass.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Run issues every method against every path. The error is reserved for
// an unusable config or a cancelled context; failed checks land in the report.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg, err := withDefaults(cfg)
	if err != nil {
		return Report{}, err
	}

	type job struct {
		idx    int
		method string
		url    string
	}
	var jobs []job
	for _, m := range cfg.Methods {
		for _, p := range cfg.Paths {
			jobs = append(jobs, job{idx: len(jobs), method: strings.ToUpper(m), url: join(cfg.URL, p)})
		}
	}

	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			res := check(gctx, cfg, j.method, j.url)
			results[j.idx] = res

			if res.OK() {
				cfg.Logger.Debug("probe passed", "method", res.Method, "url", res.URL, "status", res.Status)
			} else {
				cfg.Logger.Warn("probe failed", "method", res.Method, "url", res.URL, "error", res.Error)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Report{Results: results}, err
	}
	return Report{Results: results}, nil
}

func withDefaults(cfg Config) (Config, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return cfg, ErrNoURL
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return cfg, fmt.Errorf("stage url %q must start with http:// or https://", cfg.URL)
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = DefaultPaths
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = DefaultMethods
	}
	if cfg.ExpectStatus == 0 {
		cfg.ExpectStatus = http.StatusOK
	}
	if cfg.ExpectBody == "" {
		cfg.ExpectBody = hello.Greeting
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg, nil
}

func check(ctx context.Context, cfg Config, method, url string) Result {
	res := Result{Method: method, URL: url}
	start := time.Now()

	err := retry.Do(
		func() error {
			res.Attempts++
			status, body, err := send(ctx, cfg.Client, method, url)
			res.Status, res.Body = status, body
			if cfg.ExpectGone {
				return expectGone(ctx, status, err)
			}
			if err != nil {
				return err
			}
			if status != cfg.ExpectStatus {
				return fmt.Errorf("status %d, want %d", status, cfg.ExpectStatus)
			}
			if body != cfg.ExpectBody {
				return fmt.Errorf("body %q, want %q", body, cfg.ExpectBody)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func send(ctx context.Context, c Doer, method, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := c.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading body: %w", err)
	}
	return resp.StatusCode, string(b), nil
}

// expectGone treats a transport error or 403/404 as a removed stage. An
// interrupted run is never a pass.
func expectGone(ctx context.Context, status int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return nil
	}
	if status == http.StatusForbidden || status == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("stage still answers with status %d", status)
}

func join(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if path == "" || path == "/" {
		return base
	}
	return base + "/" + strings.TrimPrefix(path, "/")
}
