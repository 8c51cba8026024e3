// internal/clients/notes/notion.go
package notes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"pika-api/internal/common/config"
	"pika-api/internal/common/dates"
	commonhttp "pika-api/internal/common/http"
	"pika-api/internal/common/logger"
	"pika-api/internal/models"
)

const pageCacheTTL = 10 * time.Minute

// Client upserts health metrics into a Notion database. One row per date:
// an existing row for the date is updated, otherwise a row is created.
type Client struct {
	cfg        config.NotionConfig
	httpClient *commonhttp.Client
	cache      *redis.Client
	logger     logger.Logger
}

// NewClient builds a notes client. cache may be nil, in which case every
// upsert queries the database for the date's page.
func NewClient(cfg config.NotionConfig, cache *redis.Client, log logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		cache:      cache,
		logger:     log,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization":  "Bearer " + c.cfg.APIKey,
		"Notion-Version": c.cfg.Version,
	}
}

type queryRequest struct {
	Filter queryFilter `json:"filter"`
}

type queryFilter struct {
	Property string     `json:"property"`
	Date     dateEquals `json:"date"`
}

type dateEquals struct {
	Equals string `json:"equals"`
}

type queryResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type pageRequest struct {
	Parent     *pageParent            `json:"parent,omitempty"`
	Properties map[string]interface{} `json:"properties"`
}

type pageParent struct {
	DatabaseID string `json:"database_id"`
}

type pageResponse struct {
	ID string `json:"id"`
}

// UpsertHealthEntry writes the metrics for a date, updating the date's
// existing row when there is one.
func (c *Client) UpsertHealthEntry(ctx context.Context, date time.Time, m *models.HealthMetrics) (*models.UpsertResult, error) {
	isoDate := dates.ForNotes(date)

	pageID, err := c.findPage(ctx, isoDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes database: %w", err)
	}

	props := buildProperties(isoDate, m)

	if pageID != "" {
		url := fmt.Sprintf("%s/pages/%s", c.cfg.BaseURL, pageID)
		var resp pageResponse
		if err := c.httpClient.DoJSON(ctx, http.MethodPatch, url, c.headers(),
			pageRequest{Properties: props}, &resp); err != nil {
			return nil, fmt.Errorf("failed to update notes page: %w", err)
		}
		c.logger.Info("Notes entry updated", map[string]interface{}{
			"date":   isoDate,
			"pageId": pageID,
		})
		return &models.UpsertResult{PageID: pageID, Created: false}, nil
	}

	var resp pageResponse
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/pages", c.headers(),
		pageRequest{
			Parent:     &pageParent{DatabaseID: c.cfg.HealthDatabaseID()},
			Properties: props,
		}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create notes page: %w", err)
	}

	c.cachePage(ctx, isoDate, resp.ID)
	c.logger.Info("Notes entry created", map[string]interface{}{
		"date":   isoDate,
		"pageId": resp.ID,
	})
	return &models.UpsertResult{PageID: resp.ID, Created: true}, nil
}

// findPage looks up the page id for a date, consulting the cache first.
func (c *Client) findPage(ctx context.Context, isoDate string) (string, error) {
	if c.cache != nil {
		if id, err := c.cache.Get(ctx, cacheKey(isoDate)).Result(); err == nil && id != "" {
			return id, nil
		}
	}

	url := fmt.Sprintf("%s/databases/%s/query", c.cfg.BaseURL, c.cfg.HealthDatabaseID())
	var resp queryResponse
	err := c.httpClient.DoJSON(ctx, http.MethodPost, url, c.headers(), queryRequest{
		Filter: queryFilter{
			Property: "Date",
			Date:     dateEquals{Equals: isoDate},
		},
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Results) == 0 {
		return "", nil
	}

	id := resp.Results[0].ID
	c.cachePage(ctx, isoDate, id)
	return id, nil
}

// cachePage stores the page id for a date. Cache failures are logged and
// otherwise ignored.
func (c *Client) cachePage(ctx context.Context, isoDate, pageID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(isoDate), pageID, pageCacheTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache notes page id", map[string]interface{}{
			"date":  isoDate,
			"error": err.Error(),
		})
	}
}

func cacheKey(isoDate string) string {
	return "notion:health:" + isoDate
}

func buildProperties(isoDate string, m *models.HealthMetrics) map[string]interface{} {
	// The property name carries the unit the weight was read in, so the
	// database column stays in sync with the configured vision prompt.
	unit := m.WeightUnit
	if unit == "" {
		unit = "jin"
	}

	props := map[string]interface{}{
		"Date": map[string]interface{}{
			"date": map[string]interface{}{"start": isoDate},
		},
		fmt.Sprintf("Weight (%s)", unit): numberProp(m.Weight),
	}

	if m.BodyFat != nil {
		props["Body Fat %"] = numberProp(*m.BodyFat)
	}
	if m.MuscleRate != nil {
		props["Muscle Rate %"] = numberProp(*m.MuscleRate)
	}
	if m.BMI != nil {
		props["BMI"] = numberProp(*m.BMI)
	}
	return props
}

func numberProp(v float64) map[string]interface{} {
	return map[string]interface{}{"number": v}
}
