package fetch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"2a00:1450:4001::1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPrivateIP(net.ParseIP(tt.ip)), tt.ip)
	}
}

func TestSafeCheckRedirect(t *testing.T) {
	mk := func(raw string) *http.Request {
		u, _ := url.Parse(raw)
		return &http.Request{URL: u}
	}
	assert.Error(t, SafeCheckRedirect(mk("http://localhost/x"), nil))
	assert.Error(t, SafeCheckRedirect(mk("http://printer.local/"), nil))
	assert.Error(t, SafeCheckRedirect(mk("http://10.0.0.5/"), nil))
	assert.Error(t, SafeCheckRedirect(mk("ftp://example.nl/"), nil))
	assert.Error(t, SafeCheckRedirect(mk("https://example.nl/"), make([]*http.Request, 10)))
	assert.NoError(t, SafeCheckRedirect(mk("https://93.184.216.34/"), nil))
}

func TestHTTPFetcherBlocksLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(2 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked private IP")
}

func TestHTTPFetcherDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hallo</body></html>"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, doc.IsHTML())
	body, err := doc.ReadAll(1 << 20)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hallo")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestCollyFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta name="viewport" content="width=device-width"></head></html>`))
	}))
	defer srv.Close()

	f := NewCollyFetcher(2 * time.Second)
	f.Transport = http.DefaultTransport
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	body, err := doc.ReadAll(1 << 20)
	require.NoError(t, err)
	assert.Contains(t, string(body), "viewport")
}

func TestDocumentIsHTML(t *testing.T) {
	assert.True(t, (&Document{ContentType: "text/html; charset=UTF-8"}).IsHTML())
	assert.True(t, (&Document{ContentType: "application/xhtml+xml"}).IsHTML())
	assert.False(t, (&Document{ContentType: "application/pdf"}).IsHTML())
}
