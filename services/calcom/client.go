package calcom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"classbridge/models"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 100
	maxPages        = 500
)

// APIError is a non-success answer from the scheduling provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cal.com API returned %d: %s", e.StatusCode, e.Body)
}

// Config configures the scheduling-provider client.
type Config struct {
	BaseURL    string
	APIKey     string
	APIVersion string
	PageSize   int
	HTTPClient *http.Client
}

// Client talks to the scheduling provider's v2 REST API.
type Client struct {
	baseURL    string
	apiKey     string
	apiVersion string
	pageSize   int
	http       *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		pageSize:   pageSize,
		http:       hc,
		logger:     logger,
	}
}

// --- Wire types ---

type envelope struct {
	Status     string          `json:"status"`
	Data       json.RawMessage `json:"data"`
	Pagination *pagination     `json:"pagination,omitempty"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type pagination struct {
	TotalItems  int  `json:"totalItems"`
	HasNextPage bool `json:"hasNextPage"`
}

type apiBooking struct {
	UID         string            `json:"uid"`
	Title       string            `json:"title"`
	Status      string            `json:"status"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Attendees   []models.Attendee `json:"attendees"`
	EventTypeID int               `json:"eventTypeId"`
	EventType   *struct {
		ID   int    `json:"id"`
		Slug string `json:"slug"`
	} `json:"eventType,omitempty"`
}

func (b apiBooking) toModel() (models.Booking, error) {
	status, err := models.ParseBookingStatus(b.Status)
	if err != nil {
		return models.Booking{}, fmt.Errorf("booking %s: %w", b.UID, err)
	}
	out := models.Booking{
		UID:         b.UID,
		Status:      status,
		Title:       b.Title,
		StartTime:   b.Start,
		EndTime:     b.End,
		Attendees:   b.Attendees,
		EventTypeID: b.EventTypeID,
	}
	if b.EventType != nil {
		out.EventTypeSlug = b.EventType.Slug
		if out.EventTypeID == 0 {
			out.EventTypeID = b.EventType.ID
		}
	}
	return out, nil
}

// FetchBookings pages through every booking. Any failure, including a single
// unparseable booking, fails the whole fetch.
func (c *Client) FetchBookings(ctx context.Context) ([]models.Booking, error) {
	var all []models.Booking

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("take", strconv.Itoa(c.pageSize))
		q.Set("skip", strconv.Itoa(page*c.pageSize))

		env, err := c.do(ctx, http.MethodGet, "/bookings?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("fetch bookings page %d: %w", page, err)
		}

		var items []apiBooking
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("decode bookings page %d: %w", page, err)
		}
		for _, item := range items {
			b, err := item.toModel()
			if err != nil {
				return nil, err
			}
			all = append(all, b)
		}

		if len(items) < c.pageSize || (env.Pagination != nil && !env.Pagination.HasNextPage) {
			c.logger.Debug("fetched bookings", zap.Int("count", len(all)), zap.Int("pages", page+1))
			return all, nil
		}
	}
	return nil, fmt.Errorf("fetch bookings: more than %d pages", maxPages)
}

// ConfirmBooking accepts a booking that requires confirmation.
func (c *Client) ConfirmBooking(ctx context.Context, uid string) (*models.Booking, error) {
	env, err := c.do(ctx, http.MethodPost, "/bookings/"+url.PathEscape(uid)+"/confirm")
	if err != nil {
		return nil, fmt.Errorf("confirm booking %s: %w", uid, err)
	}
	var item apiBooking
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return nil, fmt.Errorf("decode confirmed booking %s: %w", uid, err)
	}
	b, err := item.toModel()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("cal-api-version", c.apiVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !strings.EqualFold(env.Status, "success") {
		msg := env.Status
		if env.Error != nil {
			msg = env.Error.Code + ": " + env.Error.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: msg}
	}
	return &env, nil
}
