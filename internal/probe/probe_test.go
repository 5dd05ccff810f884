package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/terraform-provider-lambdaproxy/function/hello"
	"github.com/raywall/terraform-provider-lambdaproxy/internal/emulator"
)

func TestRun_AgainstEmulatedStage(t *testing.T) {
	srv := httptest.NewServer(emulator.New(hello.Handler, emulator.Options{Stage: "dev", ProxyRoot: true}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{URL: srv.URL + "/dev", Client: srv.Client()})
	require.NoError(t, err)

	assert.True(t, report.OK(), "%+v", report.Failures())
	require.Len(t, report.Results, len(DefaultMethods)*len(DefaultPaths))

	first := report.Results[0]
	assert.Equal(t, http.MethodGet, first.Method)
	assert.Equal(t, srv.URL+"/dev", first.URL)
	assert.Equal(t, http.StatusOK, first.Status)
	assert.Equal(t, hello.Greeting, first.Body)
	assert.Equal(t, uint(1), first.Attempts)
}

func TestRun_RootNotRouted(t *testing.T) {
	srv := httptest.NewServer(emulator.New(hello.Handler, emulator.Options{Stage: "dev"}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		URL:     srv.URL + "/dev/",
		Methods: []string{"get"},
		Paths:   []string{"/", "/x"},
		Client:  srv.Client(),
	})
	require.NoError(t, err)
	assert.False(t, report.OK())

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, srv.URL+"/dev", failures[0].URL)
	assert.Equal(t, http.StatusForbidden, failures[0].Status)
	assert.Contains(t, failures[0].Error, "status 403")
}

func TestRun_WrongBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{URL: srv.URL, Methods: []string{http.MethodGet}, Paths: []string{"/"}})
	require.NoError(t, err)
	require.Len(t, report.Failures(), 1)
	assert.Contains(t, report.Failures()[0].Error, `body "nope"`)
}

func TestRun_RetriesUntilStageAnswers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(hello.Greeting))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		URL:        srv.URL,
		Methods:    []string{http.MethodGet},
		Paths:      []string{"/"},
		Attempts:   5,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, uint(3), report.Results[0].Attempts)
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: lookup abc.execute-api.us-east-1.amazonaws.com: no such host")
}

func TestRun_ExpectGone(t *testing.T) {
	report, err := Run(context.Background(), Config{
		URL:        "https://abc.execute-api.us-east-1.amazonaws.com/dev",
		ExpectGone: true,
		Client:     failingDoer{},
	})
	require.NoError(t, err)
	assert.True(t, report.OK())

	srv := httptest.NewServer(emulator.New(hello.Handler, emulator.Options{Stage: "dev", ProxyRoot: true}))
	defer srv.Close()

	report, err = Run(context.Background(), Config{URL: srv.URL + "/dev", ExpectGone: true, Client: srv.Client()})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Contains(t, report.Failures()[0].Error, "still answers")
}

type contextDoer struct{}

func (contextDoer) Do(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestRun_ExpectGoneInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, Config{
		URL:        "https://abc.execute-api.us-east-1.amazonaws.com/dev",
		ExpectGone: true,
		Client:     contextDoer{},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, report.OK())
	require.NotEmpty(t, report.Failures())
	assert.Contains(t, report.Failures()[0].Error, context.Canceled.Error())
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoURL)

	_, err = Run(context.Background(), Config{URL: "ftp://x"})
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "https://h/dev", join("https://h/dev/", "/"))
	assert.Equal(t, "https://h/dev/a/b", join("https://h/dev", "/a/b"))
	assert.Equal(t, "https://h/dev/a", join("https://h/dev/", "a"))
}
