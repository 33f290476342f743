package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Discord formatting limits and colors
const (
	DiscordUsername     = "Release Watcher"
	discordMaxFields    = 25
	discordMaxFieldText = 1024
	discordMaxAttempts  = 3
	outdatedEmbedColor  = 0xF0AD4E
	upToDateEmbedColor  = 0x5CB85C
	unknownEmbedColor   = 0xD9534F
	defaultRetryBackoff = 2 * time.Second
)

// DiscordWebhookConfig configures a discord_webhook output
type DiscordWebhookConfig struct {
	Type            string `yaml:"type" validate:"required"`
	WebhookURL      string `yaml:"webhook_url" validate:"required,url"`
	DisplayUpToDate bool   `yaml:"display_up_to_date"`
	Username        string `yaml:"username"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" validate:"min=1"`
}

// TypeName returns the registry name of the output kind
func (c DiscordWebhookConfig) TypeName() string { return c.Type }

// String hides the webhook token, which is part of the URL
func (c DiscordWebhookConfig) String() string { return c.Type }

// DiscordWebhookType builds discord_webhook outputs
type DiscordWebhookType struct{}

// Name returns the registry name of the kind
func (DiscordWebhookType) Name() string { return "discord_webhook" }

// ParseConfig decodes a discord_webhook entry
func (t DiscordWebhookType) ParseConfig(_ config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := DiscordWebhookConfig{Username: DiscordUsername, TimeoutSeconds: config.DefaultTimeoutSeconds}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Create builds a DiscordWebhookOutput
func (t DiscordWebhookType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[DiscordWebhookConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	logger = outputLogger(logger, "DiscordWebhookOutput", typed)

	client, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(time.Duration(typed.TimeoutSeconds) * time.Second).
		WithHeader("Content-Type", "application/json").
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to create discord http client")
	}

	return &DiscordWebhookOutput{
		cfg:          typed,
		client:       client,
		logger:       logger,
		retryBackoff: defaultRetryBackoff,
		now:          time.Now,
	}, nil
}

type discordPayload struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordWebhookOutput posts a summary of outdated artifacts to a Discord channel
type DiscordWebhookOutput struct {
	cfg          DiscordWebhookConfig
	client       *httpclient.HTTPClient
	logger       zerolog.Logger
	retryBackoff time.Duration
	now          func() time.Time
}

// Emit posts one message, retrying transient failures
func (o *DiscordWebhookOutput) Emit(ctx context.Context, results []models.WatchResult) error {
	rows := buildRows(results, o.cfg.DisplayUpToDate)
	if len(rows) == 0 {
		o.logger.Info().Msg("Nothing to report, skipping Discord notification")
		return nil
	}

	body, err := json.Marshal(o.buildPayload(rows))
	if err != nil {
		return common.WrapError(err, "failed to marshal discord payload")
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = o.retryBackoff

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		return struct{}{}, o.post(ctx, body)
	}
	notify := func(err error, next time.Duration) {
		o.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Discord notification failed, retrying")
	}
	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backOff),
		backoff.WithMaxTries(discordMaxAttempts),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return common.WrapErrorf(err, "discord notification failed after %d attempt(s)", attempt)
	}

	o.logger.Info().Int("results", len(rows)).Int("attempts", attempt).Msg("Discord notification sent")
	return nil
}

func (o *DiscordWebhookOutput) post(ctx context.Context, body []byte) error {
	resp, err := o.client.Do(&httpclient.HTTPRequest{
		URL:     o.cfg.WebhookURL,
		Method:  http.MethodPost,
		Body:    bytes.NewReader(body),
		Context: ctx,
	})
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}

	httpErr := resp.AsError()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if seconds, convErr := strconv.Atoi(resp.Headers.Get("Retry-After")); convErr == nil && seconds > 0 {
			return fmt.Errorf("%w: %w", httpErr, backoff.RetryAfter(seconds))
		}
		return httpErr
	case resp.StatusCode >= http.StatusInternalServerError:
		return httpErr
	default:
		return backoff.Permanent(httpErr)
	}
}

func (o *DiscordWebhookOutput) buildPayload(rows []Row) discordPayload {
	outdated := 0
	fields := make([]discordEmbedField, 0, min(len(rows), discordMaxFields))
	for i, row := range rows {
		if !row.UpToDate {
			outdated++
		}
		if i == discordMaxFields-1 && len(rows) > discordMaxFields {
			fields = append(fields, discordEmbedField{
				Name:  "More",
				Value: fmt.Sprintf("and %d more artifact(s)", len(rows)-i),
			})
			continue
		}
		if i >= discordMaxFields {
			continue
		}
		fields = append(fields, discordEmbedField{
			Name:  truncate(fmt.Sprintf("%s (%s)", row.Name, row.Type), 256),
			Value: truncate(describeRow(row), discordMaxFieldText),
		})
	}

	color := upToDateEmbedColor
	if outdated > 0 {
		color = outdatedEmbedColor
	}
	for _, row := range rows {
		if !row.CurrentFound {
			color = unknownEmbedColor
			break
		}
	}

	return discordPayload{
		Username: o.cfg.Username,
		Embeds: []discordEmbed{{
			Title:       "Release watch report",
			Description: fmt.Sprintf("%d of %d artifact(s) are not up to date.", outdated, len(rows)),
			Timestamp:   o.now().UTC().Format(time.RFC3339),
			Color:       color,
			Fields:      fields,
		}},
	}
}

func describeRow(row Row) string {
	current := row.CurrentRelease
	if !row.CurrentFound {
		current = "not found upstream"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current: `%s`", current)
	if row.CurrentReleaseDate != nil {
		fmt.Fprintf(&b, " (%s)", row.CurrentReleaseDate.Format(time.DateOnly))
	}
	if row.NewestReleaseDate != nil {
		fmt.Fprintf(&b, "\nNewest: `%s` (%s)", row.NewestRelease, row.NewestReleaseDate.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "\nMissed: %d", row.MissedCount)
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
