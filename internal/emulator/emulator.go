// Package emulator serves a proxy handler the way an API Gateway stage would:
// requests under /<stage> become proxy events, anything else is rejected.
package emulator

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ProxyHandler has the shape of a Lambda proxy integration target.
type ProxyHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Options configure the emulated stage.
type Options struct {
	Stage string
	// ProxyRoot routes the stage root; without it only /{proxy+} matches.
	ProxyRoot bool
	Logger    *slog.Logger
}

// New returns a router that forwards every method under the stage to h.
func New(h ProxyHandler, opts Options) http.Handler {
	if opts.Stage == "" {
		opts.Stage = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	p := &proxy{handler: h, stage: opts.Stage, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.NotFound(forbidden)
	r.MethodNotAllowed(forbidden)

	r.Route("/"+opts.Stage, func(r chi.Router) {
		if opts.ProxyRoot {
			r.HandleFunc("/", p.serve)
		}
		r.HandleFunc("/{proxy}", p.serve)
		r.HandleFunc("/{proxy}/*", p.serve)
	})

	return r
}

// forbidden mirrors the body API Gateway returns for unrouted paths.
func forbidden(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = io.WriteString(w, `{"message":"Missing Authentication Token"}`)
}

type proxy struct {
	handler ProxyHandler
	stage   string
	logger  *slog.Logger
}

func (p *proxy) serve(w http.ResponseWriter, r *http.Request) {
	event, err := p.toEvent(r)
	if err != nil {
		p.logger.Error("failed to read request body", "error", err)
		http.Error(w, `{"message":"Internal server error"}`, http.StatusInternalServerError)
		return
	}

	resp, err := p.handler(r.Context(), event)
	if err != nil {
		// Erro da função vira 502, como na integração AWS_PROXY
		p.logger.Error("function returned error", "error", err, "path", event.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"message": "Internal server error"}`)
		return
	}

	writeResponse(w, resp)
	p.logger.Debug("proxied request", "method", event.HTTPMethod, "path", event.Path, "status", resp.StatusCode)
}

func (p *proxy) toEvent(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}

	path := strings.TrimPrefix(r.URL.Path, "/"+p.stage)
	if path == "" {
		path = "/"
	}

	headers := make(map[string]string, len(r.Header))
	multiHeaders := make(map[string][]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ",")
		multiHeaders[k] = v
	}

	query := make(map[string]string)
	multiQuery := make(map[string][]string)
	for k, v := range r.URL.Query() {
		query[k] = v[len(v)-1]
		multiQuery[k] = v
	}

	event := events.APIGatewayProxyRequest{
		Resource:                        "/{proxy+}",
		Path:                            path,
		HTTPMethod:                      r.Method,
		Headers:                         headers,
		MultiValueHeaders:               multiHeaders,
		QueryStringParameters:           query,
		MultiValueQueryStringParameters: multiQuery,
		RequestContext: events.APIGatewayProxyRequestContext{
			Stage:      p.stage,
			RequestID:  middleware.GetReqID(r.Context()),
			HTTPMethod: r.Method,
			Path:       r.URL.Path,
		},
	}
	if path == "/" {
		event.Resource = "/"
	} else {
		event.PathParameters = map[string]string{"proxy": strings.TrimPrefix(path, "/")}
	}

	if len(body) > 0 {
		if isText(r.Header.Get("Content-Type")) {
			event.Body = string(body)
		} else {
			event.Body = base64.StdEncoding.EncodeToString(body)
			event.IsBase64Encoded = true
		}
	}
	return event, nil
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.IsBase64Encoded {
		if b, err := base64.StdEncoding.DecodeString(resp.Body); err == nil {
			_, _ = w.Write(b)
			return
		}
	}
	_, _ = io.WriteString(w, resp.Body)
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "x-www-form-urlencoded")
}
