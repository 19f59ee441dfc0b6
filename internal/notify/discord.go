package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DiscordNotifier sends sync failure reports to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a DiscordNotifier with the given webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// discordEmbed represents a Discord embed object.
type discordEmbed struct {
	Title  string         `json:"title"`
	URL    string         `json:"url"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
	Footer *discordFooter `json:"footer,omitempty"`
}

// discordField represents a field in a Discord embed.
type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// discordFooter represents the footer of a Discord embed.
type discordFooter struct {
	Text string `json:"text"`
}

// discordPayload is the top-level Discord webhook payload.
type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// BuildDiscordPayload creates the Discord embed message payload for a
// failure report.
func BuildDiscordPayload(report Report) discordPayload {
	repoURL := fmt.Sprintf("https://github.com/%s", report.Repo)

	fields := []discordField{
		{
			Name:   "Mode",
			Value:  FormatMode(report.Mode),
			Inline: true,
		},
		{
			Name:   "Duration",
			Value:  FormatElapsed(report.Elapsed),
			Inline: true,
		},
		{
			Name:   "Error",
			Value:  report.Error,
			Inline: false,
		},
	}

	embed := discordEmbed{
		Title:  fmt.Sprintf("%s failed", FormatMode(report.Mode)),
		URL:    repoURL,
		Color:  15158332, // Red for failures
		Fields: fields,
		Footer: &discordFooter{
			Text: fmt.Sprintf("repovec - %s", report.Repo),
		},
	}

	return discordPayload{
		Embeds: []discordEmbed{embed},
	}
}

// Notify sends a Discord notification for the given failure report.
// Callers are expected to wrap this with retry logic if needed.
func (d *DiscordNotifier) Notify(ctx context.Context, report Report) error {
	payload := BuildDiscordPayload(report)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	return d.post(ctx, body)
}

func (d *DiscordNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
