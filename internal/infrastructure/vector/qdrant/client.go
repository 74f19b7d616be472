package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
	"github.com/maroco/major-mentor/internal/infrastructure/resilience"
)

const scrollPageSize = 256

// Client reads the course collection over qdrant's REST API. This
// service never writes points; the index is maintained by the ingestion
// pipeline and consumed here read-only.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, collection string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		exec:       exec,
	}
}

// Search runs one filtered vector search. The filter arrives in qdrant's
// native shape and passes through untouched.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, filter ports.IndexFilter) ([]domain.CourseRecord, error) {
	request := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		request["filter"] = map[string]any(filter)
	}

	var response struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.execute(ctx, "search", func(callCtx context.Context) error {
		return c.postJSON(callCtx, fmt.Sprintf("/collections/%s/points/search", c.collection), request, &response)
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.CourseRecord, 0, len(response.Result))
	for _, hit := range response.Result {
		records = append(records, domain.CourseRecord{
			ID:          fmt.Sprint(hit.ID),
			Title:       payloadString(hit.Payload, "title"),
			University:  payloadString(hit.Payload, "university"),
			Department:  payloadString(hit.Payload, "department"),
			Grade:       payloadInt(hit.Payload, "grade"),
			Semester:    payloadInt(hit.Payload, "semester"),
			Description: payloadString(hit.Payload, "description"),
			Score:       hit.Score,
		})
	}
	return records, nil
}

// ListDepartmentNames scrolls the whole collection and collects the
// distinct department payload values. Called on cache rebuilds only,
// never on the request path.
func (c *Client) ListDepartmentNames(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var offset any

	for {
		request := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{"department"},
			"with_vector":  false,
		}
		if offset != nil {
			request["offset"] = offset
		}

		var response struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err := c.execute(ctx, "scroll", func(callCtx context.Context) error {
			return c.postJSON(callCtx, fmt.Sprintf("/collections/%s/points/scroll", c.collection), request, &response)
		})
		if err != nil {
			return nil, err
		}

		for _, point := range response.Result.Points {
			if name := payloadString(point.Payload, "department"); name != "" {
				seen[name] = struct{}{}
			}
		}

		if response.Result.NextPageOffset == nil || len(response.Result.Points) == 0 {
			break
		}
		offset = response.Result.NextPageOffset
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.exec == nil {
		return wrapIndexError(operation, fn(ctx))
	}
	err := c.exec.Do(ctx, "qdrant."+operation, fn, classifyIndexError)
	return wrapIndexError(operation, err)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	case json.Number:
		n, _ := value.Int64()
		return int(n)
	default:
		return 0
	}
}
