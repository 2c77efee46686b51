package grader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeBackend struct {
	replies []reply
	calls   int
	system  string
	user    string
}

type reply struct {
	content string
	err     error
}

var errRateLimited = errors.New("rate limited")

func (f *fakeBackend) complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	r := f.replies[f.calls]
	f.calls++
	return r.content, r.err
}

func (f *fakeBackend) rateLimited(err error) bool { return errors.Is(err, errRateLimited) }
func (f *fakeBackend) close() error               { return nil }

func newFakeClient(f *fakeBackend) *Client {
	return &Client{backend: f, provider: "fake", backoff: time.Millisecond, timeout: time.Second}
}

func TestVerdict(t *testing.T) {
	require.True(t, Verdict("true"))
	require.True(t, Verdict("  TRUE\n"))
	require.False(t, Verdict("false"))
	require.False(t, Verdict("true."))
	require.False(t, Verdict("yes"))
	require.False(t, Verdict(""))
}

func TestBuildPromptIncludesExplanationOnlyWhenPresent(t *testing.T) {
	p := buildPrompt("six", "6", "")
	require.Equal(t, "Correct answer: \"6\"\nUser answer: \"six\"", p)

	p = buildPrompt("dec 31", "December 31st", "New Year's Eve")
	require.Contains(t, p, "\nContext/Explanation: \"New Year's Eve\"")
}

func TestCheckEquivalenceRetriesOnceOnRateLimit(t *testing.T) {
	f := &fakeBackend{replies: []reply{{err: errRateLimited}, {content: "true"}}}
	require.True(t, newFakeClient(f).CheckEquivalence(context.Background(), "six", "6", ""))
	require.Equal(t, 2, f.calls)
	require.Equal(t, systemPrompt, f.system)
}

func TestCheckEquivalenceGivesUpAfterSecondRateLimit(t *testing.T) {
	f := &fakeBackend{replies: []reply{{err: errRateLimited}, {err: errRateLimited}}}
	require.False(t, newFakeClient(f).CheckEquivalence(context.Background(), "six", "6", ""))
	require.Equal(t, 2, f.calls)
}

func TestCheckEquivalenceDoesNotRetryOtherErrors(t *testing.T) {
	f := &fakeBackend{replies: []reply{{err: errors.New("boom")}}}
	require.False(t, newFakeClient(f).CheckEquivalence(context.Background(), "six", "6", ""))
	require.Equal(t, 1, f.calls)
}

func TestCheckEquivalenceRejectsEmptyOrOtherContent(t *testing.T) {
	for _, content := range []string{"", "   ", "false", "maybe"} {
		f := &fakeBackend{replies: []reply{{content: content}}}
		require.False(t, newFakeClient(f).CheckEquivalence(context.Background(), "a", "b", ""), content)
	}
}

func TestCheckEquivalenceCanceledDuringBackoff(t *testing.T) {
	f := &fakeBackend{replies: []reply{{err: errRateLimited}, {content: "true"}}}
	c := newFakeClient(f)
	c.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, c.CheckEquivalence(ctx, "six", "6", ""))
	require.Equal(t, 1, f.calls)
}

func TestNewWithoutKeyRejectsEverything(t *testing.T) {
	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	require.False(t, c.Enabled())
	require.False(t, c.CheckEquivalence(context.Background(), "six", "6", ""))
	require.NoError(t, c.Close())

	var nilClient *Client
	require.False(t, nilClient.CheckEquivalence(context.Background(), "six", "6", ""))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "carrier-pigeon", APIKey: "k"})
	require.Error(t, err)
}

func TestGeminiRateLimitClassification(t *testing.T) {
	b := &geminiBackend{}
	require.True(t, b.rateLimited(&googleapi.Error{Code: http.StatusTooManyRequests}))
	require.True(t, b.rateLimited(fmt.Errorf("generate: %w", &googleapi.Error{Code: 429})))
	require.True(t, b.rateLimited(status.Error(codes.ResourceExhausted, "quota")))
	require.False(t, b.rateLimited(&googleapi.Error{Code: http.StatusInternalServerError}))
	require.False(t, b.rateLimited(errors.New("boom")))
}

// chatServer answers chat completions with the given statuses in turn.
func chatServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.MaxTokens != maxOutputTokens || len(req.Messages) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		code := statuses[len(statuses)-1]
		if int(n) <= len(statuses) {
			code = statuses[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		if code != http.StatusOK {
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":{"message":"status %d","type":"error"}}`, code)
			return
		}
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":" True\n"},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newHTTPClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestOpenAIBackendRetriesAfter429(t *testing.T) {
	srv, calls := chatServer(t, http.StatusTooManyRequests, http.StatusOK)
	c := newHTTPClient(t, srv.URL)

	require.True(t, c.CheckEquivalence(context.Background(), "six", "6", ""))
	require.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestOpenAIBackendFailsClosedAfterTwo429s(t *testing.T) {
	srv, calls := chatServer(t, http.StatusTooManyRequests, http.StatusTooManyRequests)
	c := newHTTPClient(t, srv.URL)

	require.False(t, c.CheckEquivalence(context.Background(), "six", "6", ""))
	require.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestOpenAIBackendFailsClosedOnServerError(t *testing.T) {
	srv, calls := chatServer(t, http.StatusInternalServerError)
	c := newHTTPClient(t, srv.URL)

	require.False(t, c.CheckEquivalence(context.Background(), "six", "6", ""))
	require.EqualValues(t, 1, atomic.LoadInt32(calls))
}
