package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
)

// ImageHostProvider uploads to an imgur compatible endpoint: multipart field
// "image", Client-ID authorization, JSON reply carrying data.link.
type ImageHostProvider struct {
	url        string
	clientID   string
	httpClient *http.Client
}

func NewImageHostProvider(cfg config.ImageHost, timeout time.Duration) *ImageHostProvider {
	return &ImageHostProvider{
		url:        cfg.URL,
		clientID:   cfg.ClientID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *ImageHostProvider) Name() string { return "image_host" }

type imageHostResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Link  string `json:"link"`
		Error any    `json:"error"`
	} `json:"data"`
}

func (p *ImageHostProvider) Upload(ctx context.Context, f File) (string, error) {
	if p.clientID == "" {
		return "", fmt.Errorf("image host client id not configured")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", f.Filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+p.clientID)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("image host upload failed: status=%d", resp.StatusCode)
	}

	var out imageHostResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode image host response: %w", err)
	}
	if !out.Success || out.Data.Link == "" {
		return "", fmt.Errorf("image host rejected upload: %v", out.Data.Error)
	}
	return out.Data.Link, nil
}
