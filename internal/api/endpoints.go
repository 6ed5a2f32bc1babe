package api

import (
	"context"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
)

// timestampLayouts are tried in order for latest_update. The server emits
// naive local timestamps, so a zone is optional.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Health checks that the backend is reachable and reports its index status
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	body, err := c.readBody(ctx, http.MethodGet, models.PathHealth, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	ok := gjson.GetBytes(body, "ok")
	if !ok.Exists() {
		return nil, apierrors.NewParseError("missing ok flag", "ok")
	}

	return &models.HealthStatus{
		OK:              ok.Bool(),
		Status:          gjson.GetBytes(body, "status").String(),
		StartupIndexing: gjson.GetBytes(body, "startup_indexing").String(),
	}, nil
}

// KnowledgeBase returns the state of the indexed document corpus
func (c *Client) KnowledgeBase(ctx context.Context) (*models.KnowledgeBaseStatus, error) {
	body, err := c.readBody(ctx, http.MethodGet, models.PathKnowledgeBase, nil)
	if err != nil {
		return nil, err
	}
	return parseKnowledgeBase(body)
}

func parseKnowledgeBase(body []byte) (*models.KnowledgeBaseStatus, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	count := gjson.GetBytes(body, "pdf_count")
	if count.Type != gjson.Number {
		return nil, apierrors.NewParseError("missing document count", "pdf_count")
	}

	status := &models.KnowledgeBaseStatus{
		PDFCount:       int(count.Int()),
		StatusMarkdown: gjson.GetBytes(body, "status_markdown").String(),
	}

	if latest := gjson.GetBytes(body, "latest_update"); latest.Type == gjson.String {
		ts, err := parseTimestamp(latest.String())
		if err != nil {
			return nil, apierrors.NewParseError("invalid timestamp "+latest.String(), "latest_update")
		}
		status.LatestUpdate = &ts
	}

	return status, nil
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, value, time.Local)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Reindex asks the server to rebuild its document index. It blocks until
// the server finishes.
func (c *Client) Reindex(ctx context.Context) (*models.ReindexResult, error) {
	body, err := c.readBody(ctx, http.MethodPost, models.PathReindex, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	status := gjson.GetBytes(body, "status")
	if !status.Exists() {
		return nil, apierrors.NewParseError("missing status", "status")
	}
	return &models.ReindexResult{Status: status.String()}, nil
}
