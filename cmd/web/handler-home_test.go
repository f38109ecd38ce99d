package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/billeffect/internal/e2etest"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/store"
	"github.com/myrjola/billeffect/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

const billText = `H.R. 1234: Clean Water Act

Section 1. Short title.
This Act may be cited as the Clean Water Act.`

func testLookupEnv(overrides map[string]string) func(string) (string, bool) {
	env := map[string]string{
		"BILLEFFECT_ADDR":            "localhost:0",
		"BILLEFFECT_ANALYSIS_MODE":   "offline",
		"BILLEFFECT_OFFLINE_LATENCY": "false",
		"BILLEFFECT_TICK_INTERVAL":   "1h",
	}
	for k, v := range overrides {
		env[k] = v
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func startTestServer(t *testing.T, overrides map[string]string) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv(overrides), run)
	require.NoError(t, err)
	return server
}

func flash(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(".flash").Text())
}

func Test_application_home(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)
	require.Equal(t, "offline", server.AnalysisMode())

	doc, err := server.Client().GetDoc(ctx, "/")
	require.NoError(t, err)

	require.Equal(t, 1, doc.Find("#no-bill").Length())
	require.Equal(t, 1, doc.Find("form[action='/bill']").Length())
	require.Equal(t, 1, doc.Find("form[action='/bill/upload'][enctype='multipart/form-data']").Length())
	require.Equal(t, "offline", doc.Find("#analysis-mode").Text())
	require.Equal(t, models.FormatDate(time.Now()), doc.Find("#current-date").Text())
	require.Equal(t, "Play", doc.Find("#toggle").Text())
	require.Equal(t, 3, doc.Find("form[action='/playback/speed'] button").Length())
	require.Equal(t, "1x", doc.Find("button[aria-pressed='true']").Text())
	require.Equal(t, 1, doc.Find("#visible-events li.empty").Length())
	require.Equal(t, 0, doc.Find("#recent-runs tbody tr").Length())

	nonce, ok := doc.Find("script[src='/static/main.js']").Attr("nonce")
	require.True(t, ok)
	require.NotEmpty(t, nonce)
}

func Test_application_notFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)

	resp, err := server.Client().Get(ctx, "/no-such-page")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = server.Client().Get(ctx, "/static/main.css")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Cache-Control"), "immutable")
}

func Test_application_simulation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)
	client := server.Client()

	doc, err := client.SubmitForm(ctx, "/", "/simulation", nil)
	require.NoError(t, err)
	require.Equal(t, "Load a bill before running the simulation.", flash(doc))

	doc, err = client.SubmitForm(ctx, "/", "/bill", url.Values{"content": {billText}})
	require.NoError(t, err)
	require.Equal(t, "Loaded H.R. 1234: Clean Water Act.", flash(doc))
	require.Equal(t, "H.R. 1234: Clean Water Act", doc.Find("#bill-title").Text())
	require.Contains(t, doc.Find("#bill-preview").Text(), "Section 1. Short title.")

	_, err = client.SubmitForm(ctx, "/", "/simulation", nil)
	require.NoError(t, err)

	var snapshot store.Snapshot
	require.Eventually(t, func() bool {
		require.NoError(t, client.GetJSON(ctx, "/api/snapshot", &snapshot))
		return !snapshot.Status.Analyzing && snapshot.EventCount > 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 24, snapshot.EventCount)
	require.Empty(t, snapshot.Status.LastError)
	require.Equal(t, "H.R. 1234: Clean Water Act", snapshot.BillTitle)

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 4, doc.Find("#key-points li").Length())
	require.Contains(t, doc.Find("#simulation-status").Text(), "24 events simulated.")
	require.Equal(t, 1, doc.Find("#recent-runs tbody tr").Length())
	require.Contains(t, doc.Find("#recent-runs tbody tr").Text(), "H.R. 1234: Clean Water Act")

	// Seeking to the end of the window reveals every event.
	end := models.FormatDate(snapshot.Playback.EndDate)
	doc, err = client.SubmitForm(ctx, "/", "/playback/seek", url.Values{"date": {end}})
	require.NoError(t, err)
	require.Equal(t, end, doc.Find("#current-date").Text())
	require.Equal(t, 24, doc.Find("#visible-events li.event").Length())

	// Dates past the window are clamped.
	doc, err = client.SubmitForm(ctx, "/", "/playback/seek", url.Values{"date": {"2999-01-01"}})
	require.NoError(t, err)
	require.Equal(t, end, doc.Find("#current-date").Text())

	var visible visibleEventsResponse
	require.NoError(t, client.GetJSON(ctx, "/api/events", &visible))
	require.Equal(t, end, visible.AsOf)
	require.Len(t, visible.Events, 24)

	start := snapshot.Playback.StartDate
	require.NoError(t, client.GetJSON(ctx, "/api/events?asOf="+models.FormatDate(start), &visible))
	require.Less(t, len(visible.Events), 24)
	for _, e := range visible.Events {
		require.False(t, e.Date.After(start), "event %s is dated after %s", e.ID, start)
	}

	resp, err := client.Get(ctx, "/api/events?asOf=tomorrow")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	doc, err = client.SubmitForm(ctx, "/", "/simulation/reset", nil)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#no-bill").Length())
	require.Equal(t, 0, doc.Find("#visible-events li.event").Length())
	require.Equal(t, models.FormatDate(time.Now()), doc.Find("#current-date").Text())
}

func Test_application_playbackControls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)
	client := server.Client()

	doc, err := client.SubmitForm(ctx, "/", "/playback/toggle", nil)
	require.NoError(t, err)
	require.Equal(t, "Pause", doc.Find("#toggle").Text())

	doc, err = client.SubmitForm(ctx, "/", "/playback/toggle", nil)
	require.NoError(t, err)
	require.Equal(t, "Play", doc.Find("#toggle").Text())

	doc, err = client.SubmitForm(ctx, "/", "/playback/speed", url.Values{"speed": {"5"}})
	require.NoError(t, err)
	require.Equal(t, "5x", doc.Find("button[aria-pressed='true']").Text())

	doc, err = client.SubmitForm(ctx, "/", "/playback/speed", url.Values{"speed": {"3"}})
	require.NoError(t, err)
	require.Equal(t, "Choose a speed of 1x, 2x or 5x.", flash(doc))
	require.Equal(t, "5x", doc.Find("button[aria-pressed='true']").Text())

	doc, err = client.SubmitForm(ctx, "/", "/playback/seek", url.Values{"date": {"next week"}})
	require.NoError(t, err)
	require.Equal(t, "Enter the date as YYYY-MM-DD.", flash(doc))
}

func Test_application_ingestion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)
	client := server.Client()

	tests := []struct {
		name      string
		filename  string
		content   []byte
		wantFlash string
		wantTitle string
	}{
		{
			name:      "markdown",
			filename:  "roads.md",
			content:   []byte("Safe Roads Act of 2026\n\nSection 1. Funding for bridges."),
			wantFlash: "Loaded Safe Roads Act of 2026.",
			wantTitle: "Safe Roads Act of 2026",
		},
		{
			name:      "pdf without extraction configured",
			filename:  "bill.pdf",
			content:   []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF"),
			wantFlash: "Could not read the bill: remote service not configured.",
			wantTitle: "Safe Roads Act of 2026",
		},
		{
			name:      "image",
			filename:  "map.png",
			content:   []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"),
			wantFlash: "Could not read the bill: unsupported file format.",
			wantTitle: "Safe Roads Act of 2026",
		},
		{
			name:      "blank text",
			filename:  "blank.txt",
			content:   []byte("  \n\n  "),
			wantFlash: "Could not read the bill: bill text is empty.",
			wantTitle: "Safe Roads Act of 2026",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := client.UploadFile(ctx, "/", "/bill/upload", uploadFieldName, tt.filename, tt.content)
			require.NoError(t, err)
			require.Equal(t, tt.wantFlash, flash(doc))
			require.Equal(t, tt.wantTitle, doc.Find("#bill-title").Text(), "failed uploads keep the loaded bill")
		})
	}

	doc, err := client.SubmitForm(ctx, "/", "/bill", url.Values{"content": {"   "}})
	require.NoError(t, err)
	require.Equal(t, "Could not read the bill: bill text is empty.", flash(doc))

	doc, err = client.SubmitForm(ctx, "/", "/bill/clear", nil)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#no-bill").Length())
}

func Test_application_workspacesAreSeparate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)

	_, err := server.Client().SubmitForm(ctx, "/", "/bill", url.Values{"content": {billText}})
	require.NoError(t, err)

	other, err := server.NewSession()
	require.NoError(t, err)
	doc, err := other.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#no-bill").Length())

	// The bill stays with the session that loaded it until the session is gone.
	client := server.Client()
	hasSession, err := client.HasSession()
	require.NoError(t, err)
	require.True(t, hasSession)
	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find("#no-bill").Length())

	require.NoError(t, client.ForgetSession())
	hasSession, err = client.HasSession()
	require.NoError(t, err)
	require.False(t, hasSession)
	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#no-bill").Length())
}

func Test_application_csrf(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	server := startTestServer(t, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL()+"/bill",
		strings.NewReader(url.Values{"content": {billText}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_application_playbackStream(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server := startTestServer(t, map[string]string{"BILLEFFECT_TICK_INTERVAL": "10ms"})
	client := server.Client()

	anonymous, err := server.NewSession()
	require.NoError(t, err)
	resp, err := anonymous.Get(ctx, "/api/playback/stream")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "the stream needs a workspace")

	// Visiting the page assigns the workspace.
	_, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)

	resp, err = client.Get(ctx, "/api/playback/stream")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	snapshots := make(chan store.Snapshot)
	go func() {
		defer close(snapshots)
		scanner := bufio.NewScanner(resp.Body)
		event := ""
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: ") && event == playbackStreamEvent:
				var snapshot store.Snapshot
				if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snapshot) != nil {
					return
				}
				select {
				case snapshots <- snapshot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	first := <-snapshots
	require.False(t, first.Playback.IsPlaying)
	require.Equal(t, first.Playback.StartDate, first.Playback.CurrentDate)

	_, err = client.SubmitForm(ctx, "/", "/playback/toggle", nil)
	require.NoError(t, err)

	for snapshot := range snapshots {
		if snapshot.Playback.CurrentDate.After(first.Playback.CurrentDate) {
			require.True(t, snapshot.Playback.IsPlaying)
			return
		}
	}
	t.Fatal("stream ended before playback advanced")
}

func Test_run_invalidConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		overrides map[string]string
	}{
		{name: "tick interval", overrides: map[string]string{"BILLEFFECT_TICK_INTERVAL": "fast"}},
		{name: "zero tick interval", overrides: map[string]string{"BILLEFFECT_TICK_INTERVAL": "0s"}},
		{name: "negative tick interval", overrides: map[string]string{"BILLEFFECT_TICK_INTERVAL": "-1s"}},
		{name: "offline latency", overrides: map[string]string{"BILLEFFECT_OFFLINE_LATENCY": "sometimes"}},
		{name: "analysis mode", overrides: map[string]string{"BILLEFFECT_ANALYSIS_MODE": "psychic"}},
		{name: "remote without key", overrides: map[string]string{"BILLEFFECT_ANALYSIS_MODE": "remote"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), testhelpers.NewLogger(io.Discard), testLookupEnv(tt.overrides))
			require.Error(t, err)
		})
	}
}
