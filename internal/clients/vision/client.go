// internal/clients/vision/client.go
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"pika-api/internal/common/config"
	commonhttp "pika-api/internal/common/http"
	"pika-api/internal/common/logger"
	"pika-api/internal/models"
)

const promptTemplate = `Read the body scale display in this photo and return ONLY a JSON object with these keys:
{"weight": <number, in %s>, "body_fat": <number or null, percent>, "muscle_rate": <number or null, percent>, "bmi": <number or null>}
Use null for any value not visible on the display. Do not add any other text.`

// Client extracts health metrics from scale photos via an OpenRouter-style
// chat completions endpoint.
type Client struct {
	cfg        config.VisionConfig
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(cfg config.VisionConfig, log logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		logger:     log,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// metricsPayload mirrors the JSON object the model is asked for. Pointers
// distinguish absent values from zero.
type metricsPayload struct {
	Weight     *float64 `json:"weight"`
	BodyFat    *float64 `json:"body_fat"`
	MuscleRate *float64 `json:"muscle_rate"`
	BMI        *float64 `json:"bmi"`
}

// Extract sends the image to the vision model and parses the reply. A reply
// without a readable weight is an error; implausible optional values are
// dropped with a warning.
func (c *Client) Extract(ctx context.Context, image []byte) (*models.HealthMetrics, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", detectMIME(image), base64.StdEncoding.EncodeToString(image))

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: fmt.Sprintf(promptTemplate, c.cfg.WeightUnit)},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
				},
			},
		},
	}

	var resp chatResponse
	err := c.httpClient.DoJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, reqBody, &resp)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision response contained no choices")
	}
	content := resp.Choices[0].Message.Content

	payload, err := parseContent(content)
	if err != nil {
		return nil, err
	}

	return c.sanitize(payload), nil
}

// parseContent tries a strict JSON parse of the model reply, then falls back
// to pulling the fields out of whatever text surrounds the object.
func parseContent(content string) (*metricsPayload, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var payload metricsPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		if payload.Weight == nil {
			return nil, fmt.Errorf("vision reply has no weight value")
		}
		return &payload, nil
	}

	fallback := extractFields(content)
	if fallback.Weight == nil {
		return nil, fmt.Errorf("could not parse metrics from vision reply")
	}
	return fallback, nil
}

var fieldPatterns = map[string]*regexp.Regexp{
	"weight":      regexp.MustCompile(`"weight"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`),
	"body_fat":    regexp.MustCompile(`"body_fat"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`),
	"muscle_rate": regexp.MustCompile(`"muscle_rate"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`),
	"bmi":         regexp.MustCompile(`"bmi"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`),
}

func extractFields(content string) *metricsPayload {
	payload := &metricsPayload{}
	for field, pattern := range fieldPatterns {
		m := pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		switch field {
		case "weight":
			payload.Weight = &v
		case "body_fat":
			payload.BodyFat = &v
		case "muscle_rate":
			payload.MuscleRate = &v
		case "bmi":
			payload.BMI = &v
		}
	}
	return payload
}

// sanitize drops implausible optional readings and returns the final metrics,
// stamped with the unit the model was asked to read.
func (c *Client) sanitize(p *metricsPayload) *models.HealthMetrics {
	m := &models.HealthMetrics{
		Weight:     *p.Weight,
		WeightUnit: c.cfg.WeightUnit,
	}

	m.BodyFat = c.checkPercent("body_fat", p.BodyFat)
	m.MuscleRate = c.checkPercent("muscle_rate", p.MuscleRate)

	if p.BMI != nil {
		if *p.BMI > 0 && *p.BMI < 100 {
			m.BMI = p.BMI
		} else {
			c.logger.Warn("Dropping implausible metric value", map[string]interface{}{
				"field": "bmi",
				"value": *p.BMI,
			})
		}
	}
	return m
}

func (c *Client) checkPercent(field string, v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v <= 0 || *v >= 100 {
		c.logger.Warn("Dropping implausible metric value", map[string]interface{}{
			"field": field,
			"value": *v,
		})
		return nil
	}
	return v
}

func detectMIME(image []byte) string {
	switch {
	case bytes.HasPrefix(image, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(image, []byte("\xff\xd8")):
		return "image/jpeg"
	default:
		return "image/png"
	}
}
