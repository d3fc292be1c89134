package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spool/internal/config"
)

const userAgent = "Spool/0.1.0"

// Service pushes terminal download outcomes to an external notification
// channel.
type Service interface {
	NotifyDownloadCompleted(ctx context.Context, title, filename string) error
	NotifyDownloadFailed(ctx context.Context, title, reason string) error
	NotifyDownloadCanceled(ctx context.Context, title string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyDownloadCompleted(ctx context.Context, title, filename string) error {
	title = strings.TrimSpace(title)
	filename = strings.TrimSpace(filename)
	message := fmt.Sprintf("Download complete: %s", title)
	if filename != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, filename)
	}
	data := payload{
		title:   "Spool - Download Complete",
		message: message,
		tags:    []string{"spool", "download", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDownloadFailed(ctx context.Context, title, reason string) error {
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "Spool - Download Failed",
		message:  fmt.Sprintf("Download failed: %s\n%s", title, reason),
		tags:     []string{"spool", "download", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDownloadCanceled(ctx context.Context, title string) error {
	data := payload{
		title:   "Spool - Download Canceled",
		message: fmt.Sprintf("Download canceled: %s", strings.TrimSpace(title)),
		tags:    []string{"spool", "download", "canceled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Spool - Test",
		message:  "Notification system test",
		tags:     []string{"spool", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDownloadCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyDownloadFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifyDownloadCanceled(context.Context, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
