package pdfextract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/pdfextract"
	"github.com/myrjola/billeffect/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// fakeReducto serves /upload and /parse, answering /parse with parseBody.
func fakeReducto(t *testing.T, parseBody func(baseURL string) any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "bill.pdf" || string(data) != "%PDF-1.4 fake" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"file_id": "reducto://abc"})
	})
	mux.HandleFunc("POST /parse", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input != "reducto://abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(parseBody(srv.URL))
	})
	mux.HandleFunc("GET /presigned", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chunks": []map[string]any{{"content": "Remote chunk"}},
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *pdfextract.Client {
	t.Helper()
	client, err := pdfextract.New(pdfextract.Config{ //nolint:exhaustruct // defaults are fine.
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	return client
}

func TestClient_Extract(t *testing.T) {
	tests := []struct {
		name      string
		parseBody func(baseURL string) any
		wantText  string
		wantPages int
		wantErr   error
	}{
		{
			name: "inline chunks with fallbacks",
			parseBody: func(string) any {
				return map[string]any{
					"result": map[string]any{
						"type": "full",
						"chunks": []map[string]any{
							{"content": "H.R. 1234: Clean Water Act"},
							{"content": "", "embed": "Embedded text"},
							{"blocks": []map[string]any{{"content": "Block one"}, {"content": ""}, {"content": "Block two"}}},
						},
					},
					"usage": map[string]any{"num_pages": 3},
				}
			},
			wantText:  "H.R. 1234: Clean Water Act\n\nEmbedded text\n\nBlock one\nBlock two",
			wantPages: 3,
		},
		{
			name: "url result without page count",
			parseBody: func(baseURL string) any {
				return map[string]any{
					"result": map[string]any{"type": "url", "url": baseURL + "/presigned"},
				}
			},
			wantText:  "Remote chunk",
			wantPages: 1,
		},
		{
			name: "no text",
			parseBody: func(string) any {
				return map[string]any{"result": map[string]any{"chunks": []map[string]any{{"content": "  "}}}}
			},
			wantErr: models.ErrEmptyInput,
		},
		{
			name:      "undecodable response",
			parseBody: func(string) any { return "not an object" },
			wantErr:   models.ErrParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeReducto(t, tt.parseBody)
			result, err := newClient(t, srv.URL).Extract(context.Background(), "bill.pdf", []byte("%PDF-1.4 fake"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantText, result.Text)
			require.Equal(t, tt.wantPages, result.PageCount)
		})
	}
}

func TestClient_ExtractTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := newClient(t, srv.URL).Extract(context.Background(), "bill.pdf", []byte("%PDF-1.4 fake"))
	require.ErrorIs(t, err, models.ErrTransport)
	require.Equal(t, "remote service unavailable", models.UserMessage(err, ""))
}

func TestNew_MissingKey(t *testing.T) {
	_, err := pdfextract.New(pdfextract.Config{}, testhelpers.NewLogger(io.Discard)) //nolint:exhaustruct // no key.
	require.ErrorIs(t, err, models.ErrConfiguration)
}
