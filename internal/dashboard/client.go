package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
	pubmodel "gitlab.com/dirk.krummacker/connections-service/pkg/model"
)

// APIError is a non-2xx answer of the connections service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// Client speaks the HTTP API of the connections service.
type Client struct {
	client *resty.Client
}

// NewClient creates a client for the service at baseURL. The token is sent as bearer token; it
// may be empty for servers in static auth mode.
func NewClient(baseURL string, token string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{client: c}
}

// check turns transport errors and non-2xx answers into errors.
func check(resp *resty.Response, err error, action string) error {
	if err != nil {
		return errors.Wrap(err, action)
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	if body, ok := resp.Error().(*pubmodel.ErrorResponse); ok && body.Error != "" {
		apiErr.Message = body.Error
		if body.Details != "" {
			apiErr.Message += ": " + body.Details
		}
	}
	return errors.Wrap(apiErr, action)
}

// List implements API.
func (c *Client) List(ctx context.Context) ([]model.Connection, error) {
	var connections []model.Connection
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&connections).
		SetError(&pubmodel.ErrorResponse{}).
		Get("/api/connections")
	if err := check(resp, err, "list connections"); err != nil {
		return nil, err
	}
	for i := range connections {
		connections[i].Normalize()
	}
	return connections, nil
}

// Create implements API.
func (c *Client) Create(ctx context.Context, connection model.Connection) (string, error) {
	var result pubmodel.InsertResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(connection).
		SetResult(&result).
		SetError(&pubmodel.ErrorResponse{}).
		Post("/api/connections")
	if err := check(resp, err, "create connection"); err != nil {
		return "", err
	}
	return result.InsertedID, nil
}

// Update implements API. All content fields of the connection are sent.
func (c *Client) Update(ctx context.Context, connection model.Connection) error {
	var result pubmodel.UpdateResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(model.PatchFrom(connection)).
		SetResult(&result).
		SetError(&pubmodel.ErrorResponse{}).
		Put("/api/connections")
	return check(resp, err, "update connection")
}

// Delete implements API.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("id", id).
		SetError(&pubmodel.ErrorResponse{}).
		Delete("/api/connections")
	return check(resp, err, "delete connection")
}

// Suggest implements API.
func (c *Client) Suggest(ctx context.Context, connectionContext string) (string, error) {
	var result pubmodel.SuggestionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(pubmodel.SuggestionRequest{Context: connectionContext}).
		SetResult(&result).
		SetError(&pubmodel.ErrorResponse{}).
		Post("/api/ai-suggestion")
	if err := check(resp, err, "get suggestion"); err != nil {
		return "", err
	}
	return result.Suggestion, nil
}

// Healthy reports whether the service answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.client.R().SetContext(ctx).Get("/healthz")
	return err == nil && resp.StatusCode() == http.StatusOK
}
