package httputil

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"
)

func TestReadBodyDecodes(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, _ = w.Write([]byte("gzip body"))
	require.NoError(t, w.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte("brotli body"))
	require.NoError(t, bw.Close())

	cases := []struct {
		encoding string
		body     []byte
		want     string
	}{
		{"gzip", gz.Bytes(), "gzip body"},
		{"br", br.Bytes(), "brotli body"},
		{"", []byte("plain body"), "plain body"},
	}
	for _, tc := range cases {
		resp := &http.Response{
			Header: http.Header{"Content-Encoding": []string{tc.encoding}},
			Body:   io.NopCloser(bytes.NewReader(tc.body)),
		}
		got, err := ReadBody(resp)
		require.NoError(t, err)
		require.Equal(t, tc.want, string(got))
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(t, "sv-SE,sv;q=0.9,en;q=0.8", r.Header.Get("Accept-Language"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, status, err := Get(context.Background(), srv.Client(), srv.URL, BrowserHeaders(), 2)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", string(body))
	require.EqualValues(t, 2, calls.Load())
}

func TestGetPassesThroughNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, status, err := Get(context.Background(), srv.Client(), srv.URL+"/missing", nil, 2)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
}
