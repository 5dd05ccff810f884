// Package hello is the Lambda function placed behind the proxy API.
// Every request, whatever its method or path, gets the same greeting.
package hello

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

const (
	Greeting    = "Hello from Lambda!"
	ContentType = "text/plain; charset=utf-8"
)

// Function answers API Gateway proxy events.
type Function struct {
	logger *slog.Logger
}

// New builds a Function. A nil logger discards log output.
func New(logger *slog.Logger) *Function {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Function{logger: logger}
}

// Handle returns the greeting for any proxied request.
func (f *Function) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	attrs := []any{
		"method", req.HTTPMethod,
		"path", req.Path,
		"stage", req.RequestContext.Stage,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		attrs = append(attrs, "request_id", lc.AwsRequestID)
	}
	f.logger.InfoContext(ctx, "request received", attrs...)

	return Response(), nil
}

// Response is the proxy response every request receives.
func Response() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": ContentType},
		Body:       Greeting,
	}
}

// Handler answers with a logger-less Function.
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return New(nil).Handle(ctx, req)
}
