package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"superdb/lib/restyutil"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testOptions(baseUrl string) Options {
	opts := DefaultOptions()
	opts.BaseUrl = baseUrl
	opts.RetryWait = time.Millisecond
	opts.RetryMaxWait = time.Millisecond * 5
	opts.RequestsPerSecond = 0
	opts.CloudflareBypass = false
	return opts
}

func TestDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("ope"))
		require.NotEmpty(t, r.Header.Get("user-agent"))
		fmt.Fprint(w, `<div id="CardSet"><div id="cardname"><h1>Dark Magician</h1></div></div>`)
	}))
	defer server.Close()

	client := NewClient(testOptions(server.URL))
	doc, err := client.Document(context.Background(), "/yugiohdb/card_search.action?ope=2&cid=4041")
	require.NoError(t, err)
	require.Equal(t, "Dark Magician", doc.Find("#cardname h1").Text())
}

func TestDocumentRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<p>ok</p>`)
	}))
	defer server.Close()

	client := NewClient(testOptions(server.URL))
	doc, err := client.Document(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, "ok", doc.Find("p").Text())
	require.EqualValues(t, 3, attempts.Load())
}

func TestDocumentGivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Retries = 2
	client := NewClient(opts)
	_, err := client.Document(context.Background(), "/")

	var status *StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusBadGateway, status.Status)
	require.EqualValues(t, 3, attempts.Load())
}

func TestDocumentNotFoundIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(testOptions(server.URL))
	_, err := client.Document(context.Background(), "/missing")
	require.True(t, IsNotFound(err))
	require.EqualValues(t, 1, attempts.Load())
}

func TestDocumentCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>ok</p>`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions(server.URL)
	opts.RequestsPerSecond = 1
	client := NewClient(opts)
	_, err := client.Document(ctx, "/")
	require.Error(t, err)
}

func TestDocumentDumpsExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>dumped</p>`)
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "http")
	output, err := restyutil.NewFilesystemOutput(dir)
	require.NoError(t, err)

	opts := testOptions(server.URL)
	opts.Output = output
	client := NewClient(opts)
	_, err = client.Document(context.Background(), "/dump")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "---- RESPONSE ----")
	require.Contains(t, string(contents), "<p>dumped</p>")
}
