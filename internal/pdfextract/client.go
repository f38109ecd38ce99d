// Package pdfextract turns PDF documents into plain text through the Reducto document parsing API.
package pdfextract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Reducto platform endpoint.
const DefaultBaseURL = "https://platform.reducto.ai"

const maxErrorBody = 512

// Result is the text of a parsed document.
type Result struct {
	Text      string
	PageCount int
}

// Config configures a [Client].
type Config struct {
	APIKey  string
	BaseURL string
	// RequestsPerSecond paces outbound requests. Zero disables pacing.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client talks to the Reducto API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a client. A missing API key is an [models.ErrConfiguration].
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Mark(models.ErrConfiguration, errors.New("reducto api key missing"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: time.Minute} //nolint:exhaustruct // defaults are fine.
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

type uploadResponse struct {
	FileID string `json:"file_id"`
}

type parseRequest struct {
	Input string `json:"input"`
}

type block struct {
	Content string `json:"content"`
}

type chunk struct {
	Content string  `json:"content"`
	Embed   string  `json:"embed"`
	Blocks  []block `json:"blocks"`
}

type parseResponse struct {
	Result struct {
		Type   string  `json:"type"`
		URL    string  `json:"url"`
		Chunks []chunk `json:"chunks"`
	} `json:"result"`
	Usage struct {
		NumPages int `json:"num_pages"`
	} `json:"usage"`
}

type fullResult struct {
	Chunks []chunk `json:"chunks"`
}

// Extract uploads the PDF in data, parses it and returns its text.
func (c *Client) Extract(ctx context.Context, filename string, data []byte) (Result, error) {
	start := time.Now()
	fileID, err := c.upload(ctx, filename, data)
	if err != nil {
		return Result{}, err
	}

	var parsed parseResponse
	if err = c.postJSON(ctx, "/parse", parseRequest{Input: fileID}, &parsed); err != nil {
		return Result{}, err
	}

	chunks := parsed.Result.Chunks
	if parsed.Result.Type == "url" && parsed.Result.URL != "" {
		var full fullResult
		if err = c.do(ctx, http.MethodGet, parsed.Result.URL, nil, "", false, &full); err != nil {
			return Result{}, err
		}
		chunks = full.Chunks
	}

	text := chunkText(chunks)
	if text == "" {
		return Result{}, errors.Mark(models.ErrEmptyInput, errors.New("no text extracted from pdf",
			slog.String("filename", filename)))
	}
	pages := parsed.Usage.NumPages
	if pages <= 0 {
		pages = 1
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "extracted pdf text",
		slog.String("filename", filename),
		slog.Int("pages", pages),
		slog.Int("chunks", len(chunks)),
		slog.Duration("duration", time.Since(start)))
	return Result{Text: text, PageCount: pages}, nil
}

// chunkText joins the chunk contents. Chunks without content fall back to their embed text and then to their
// blocks.
func chunkText(chunks []chunk) string {
	var b strings.Builder
	for _, ch := range chunks {
		switch {
		case ch.Content != "":
			b.WriteString(ch.Content)
			b.WriteString("\n\n")
		case ch.Embed != "":
			b.WriteString(ch.Embed)
			b.WriteString("\n\n")
		case len(ch.Blocks) > 0:
			for _, bl := range ch.Blocks {
				if bl.Content != "" {
					b.WriteString(bl.Content)
					b.WriteString("\n")
				}
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func (c *Client) upload(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "create form file")
	}
	if _, err = part.Write(data); err != nil {
		return "", errors.Wrap(err, "write form file")
	}
	if err = w.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart writer")
	}

	var uploaded uploadResponse
	if err = c.do(ctx, http.MethodPost, c.baseURL+"/upload", &body, w.FormDataContentType(), true,
		&uploaded); err != nil {
		return "", err
	}
	if uploaded.FileID == "" {
		return "", errors.Mark(models.ErrParse, errors.New("upload response without file_id"))
	}
	return uploaded.FileID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data), "application/json", true, out)
}

// do sends a request and decodes the JSON response into out. Presigned result URLs are fetched without
// credentials.
func (c *Client) do(
	ctx context.Context,
	method, url string,
	body io.Reader,
	contentType string,
	authorize bool,
	out any,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Mark(models.ErrTransport, errors.Wrap(err, "wait for rate limiter"))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, "new request", slog.String("url", url))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authorize {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Mark(models.ErrTransport, errors.Wrap(err, "send request", slog.String("url", url)))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Mark(models.ErrTransport, errors.New(fmt.Sprintf("%s %s: %s", method, req.URL.Path, resp.Status),
			slog.Int("status", resp.StatusCode), slog.String("body", string(snippet))))
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(models.ErrParse, errors.Wrap(err, "decode response", slog.String("url", url)))
	}
	return nil
}
