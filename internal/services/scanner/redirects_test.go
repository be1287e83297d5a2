package scanner

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safelink/internal/domain"
)

// hopServer redirects ?n=N down to n=0, then answers 200.
func hopServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n > 0 {
			http.Redirect(w, r, fmt.Sprintf("/?n=%d", n-1), http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRedirectsNone(t *testing.T) {
	srv := hopServer(t)
	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), srv.URL+"/?n=0")

	assert.Equal(t, domain.OutcomeOK, res.Outcome)
	assert.Zero(t, res.Count)
	assert.Zero(t, res.Score)
	assert.Len(t, res.Chain, 1)
}

func TestRedirectsModerateChain(t *testing.T) {
	srv := hopServer(t)
	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), srv.URL+"/?n=3")

	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 8, res.Score)
	assert.Len(t, res.Chain, 4)
	assert.False(t, res.CrossesDomains)
}

func TestRedirectsExcessiveChain(t *testing.T) {
	srv := hopServer(t)
	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), srv.URL+"/?n=6")

	assert.Equal(t, 6, res.Count)
	assert.Equal(t, 15, res.Score)
}

func TestRedirectsLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), srv.URL)

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, DefaultPolicy().MaxRedirects, res.Count)
	assert.Equal(t, 18, res.Score)
}

func TestRedirectsHTTPSDowngrade(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer plain.Close()
	secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, plain.URL, http.StatusFound)
	}))
	defer secure.Close()

	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), secure.URL)

	require.Equal(t, domain.OutcomeOK, res.Outcome)
	assert.True(t, res.Downgrade)
	assert.Equal(t, 12, res.Score)
	assert.Equal(t, plain.URL, res.FinalURL)
}

func TestRedirectsConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), "http://"+addr+"/")

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, 5, res.Score)
}

func TestRedirectsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(ctx, srv.URL)

	assert.Equal(t, domain.OutcomeTimeout, res.Outcome)
	assert.Equal(t, 3, res.Score)
}

func TestRedirectsCompoundPenaltiesCapped(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer plain.Close()
	secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n > 0 {
			http.Redirect(w, r, fmt.Sprintf("/?n=%d", n-1), http.StatusFound)
			return
		}
		http.Redirect(w, r, plain.URL, http.StatusFound)
	}))
	defer secure.Close()

	svc := New(DefaultPolicy(), nil, nil)
	res := svc.traceRedirects(context.Background(), secure.URL+"/?n=4")

	require.Equal(t, domain.OutcomeOK, res.Outcome)
	assert.Equal(t, 5, res.Count)
	assert.True(t, res.Downgrade)
	// 15 (hops) + 12 (downgrade) capped at the stage maximum
	assert.Equal(t, maxRedirectScore, res.Score)
}

func TestScoreChainCrossDomain(t *testing.T) {
	res := scoreChain(domain.RedirectResult{
		Count: 2,
		Chain: []domain.RedirectHop{
			{URL: "https://first.example/", Scheme: "https", Status: 302},
			{URL: "https://second.test/", Scheme: "https", Status: 302},
			{URL: "https://third.invalid/", Scheme: "https", Status: 200},
		},
	})

	assert.True(t, res.CrossesDomains)
	assert.False(t, res.Downgrade)
	assert.Equal(t, 10, res.Score)
	require.Len(t, res.Rules, 1)
	assert.Contains(t, res.Rules[0].Description, "crosses 3 different domains")
}

func TestScoreChainAllPenaltiesCapped(t *testing.T) {
	chain := []domain.RedirectHop{
		{URL: "https://a.example/", Scheme: "https", Status: 302},
		{URL: "http://b.test/", Scheme: "http", Status: 302},
		{URL: "http://c.invalid/", Scheme: "http", Status: 302},
		{URL: "http://d.example.org/", Scheme: "http", Status: 302},
		{URL: "http://e.example.net/", Scheme: "http", Status: 302},
		{URL: "http://f.example.edu/", Scheme: "http", Status: 200},
	}
	res := scoreChain(domain.RedirectResult{Count: len(chain) - 1, Chain: chain})

	assert.True(t, res.CrossesDomains)
	assert.True(t, res.Downgrade)
	// 15 + 10 + 12 = 37, capped
	assert.Equal(t, maxRedirectScore, res.Score)
}
