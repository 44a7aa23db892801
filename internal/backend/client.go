package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"study-tutor/internal/logger"
)

const maxErrorBody = 64 * 1024

type Config struct {
	BaseURL string
	// Timeout bounds a whole request; zero leaves it to the transport.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the tutoring backend. It never retries; callers own all state.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		log:        log.With("client", "TutorBackend"),
		baseURL:    base,
		httpClient: hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Ask(ctx context.Context, question string) (AskResponse, error) {
	body, err := json.Marshal(AskRequest{Question: question})
	if err != nil {
		return AskResponse{}, fmt.Errorf("encode ask: %w", err)
	}
	out, err := doJSON[AskResponse](c, ctx, "ask", http.MethodPost, "/ask", bytes.NewReader(body), "application/json")
	if err != nil {
		return AskResponse{}, err
	}
	out.normalize()
	return *out, nil
}

func (c *Client) Quiz(ctx context.Context) (QuizResponse, error) {
	out, err := doJSON[QuizResponse](c, ctx, "quiz", http.MethodGet, "/quiz", nil, "")
	if err != nil {
		return QuizResponse{}, err
	}
	out.normalize()
	return *out, nil
}

func (c *Client) Summary(ctx context.Context) (SummaryResponse, error) {
	out, err := doJSON[SummaryResponse](c, ctx, "summary", http.MethodGet, "/summary", nil, "")
	if err != nil {
		return SummaryResponse{}, err
	}
	out.normalize()
	return *out, nil
}

func (c *Client) Flashcards(ctx context.Context) (FlashcardsResponse, error) {
	out, err := doJSON[FlashcardsResponse](c, ctx, "flashcards", http.MethodGet, "/summary?type=flashcards", nil, "")
	if err != nil {
		return FlashcardsResponse{}, err
	}
	out.normalize()
	return *out, nil
}

func (c *Client) ListFiles(ctx context.Context) (FilesResponse, error) {
	out, err := doJSON[FilesResponse](c, ctx, "files", http.MethodGet, "/files", nil, "")
	if err != nil {
		return FilesResponse{}, err
	}
	out.normalize()
	return *out, nil
}

// Upload sends the file and/or link as one multipart request.
func (c *Client) Upload(ctx context.Context, req UploadRequest) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if req.File != nil {
		fw, err := mw.CreateFormFile("file", req.File.Name)
		if err != nil {
			return fmt.Errorf("encode upload file: %w", err)
		}
		if _, err := fw.Write(req.File.Content); err != nil {
			return fmt.Errorf("encode upload file: %w", err)
		}
	}
	if req.Link != "" {
		if err := mw.WriteField("link", req.Link); err != nil {
			return fmt.Errorf("encode upload link: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	_, err := c.do(ctx, "upload", http.MethodPost, "/upload", &buf, mw.FormDataContentType())
	return err
}

// DeleteFile removes a file by its title; the title is path-escaped.
func (c *Client) DeleteFile(ctx context.Context, title string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, "/delete/"+url.PathEscape(title), nil, "")
	return err
}

func doJSON[T any](c *Client, ctx context.Context, op, method, path string, body io.Reader, contentType string) (*T, error) {
	raw, err := c.do(ctx, op, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	var out T
	if len(bytes.TrimSpace(raw.body)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(raw.body, &out); err != nil {
		return nil, &ServerError{Op: op, StatusCode: raw.status, Body: string(raw.body), Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (rawResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reqID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return rawResponse{}, fmt.Errorf("backend %s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", "op", op, "request_id", reqID, "error", err.Error())
		return rawResponse{}, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	var reader io.Reader = resp.Body
	if !ok {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		c.log.Warn("backend response read failed", "op", op, "request_id", reqID, "error", err.Error())
		return rawResponse{}, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	c.log.Debug("backend request done",
		"op", op,
		"request_id", reqID,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).String(),
	)
	if !ok {
		return rawResponse{}, &ServerError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return rawResponse{status: resp.StatusCode, body: raw}, nil
}
