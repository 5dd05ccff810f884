package hello

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_AnyMethodAndPath(t *testing.T) {
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodPost, "/orders"},
		{http.MethodPut, "/a/b/c"},
		{http.MethodDelete, "/x"},
		{http.MethodPatch, "/"},
		{http.MethodOptions, "/deep/nested/path"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, err := Handler(context.Background(), events.APIGatewayProxyRequest{
				HTTPMethod: tc.method,
				Path:       tc.path,
			})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, Greeting, resp.Body)
			assert.Equal(t, ContentType, resp.Headers["Content-Type"])
		})
	}
}

func TestFunction_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	f := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	_, err := f.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodGet,
		Path:           "/hi",
		RequestContext: events.APIGatewayProxyRequestContext{Stage: "dev"},
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request received", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/hi", entry["path"])
	assert.Equal(t, "dev", entry["stage"])
	assert.Equal(t, "req-1", entry["request_id"])
}
