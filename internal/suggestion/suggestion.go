// Package suggestion asks a text-generation service for advice on how to keep up a
// relationship. It speaks the OpenAI chat-completions protocol.
package suggestion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the chat model asked for suggestions.
	DefaultModel = "gpt-3.5-turbo"

	systemPrompt = "You are a helpful assistant that provides suggestions for maintaining and improving personal relationships."
	userPrompt   = "Based on this information about a connection: %s, provide a brief suggestion for maintaining or improving the relationship. Give me a list of few bullet point call to actions "
)

var (
	// ErrMissingAPIKey is returned by every request while no API key is configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
	// ErrEmptySuggestion is returned when the service answered without any text.
	ErrEmptySuggestion = errors.New("No suggestion received from OpenAI")
)

// Suggester produces a suggestion for a free-text description of a connection.
type Suggester interface {
	Suggest(ctx context.Context, connectionContext string) (string, error)
}

// Config configures the Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the chat-completions endpoint once per suggestion. It does not retry.
type Client struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewClient creates a client. Empty base URL and model fall back to the OpenAI defaults. A
// missing API key is reported by Suggest, not here.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(config.Timeout)
	return &Client{client: c, apiKey: config.APIKey, model: config.Model}
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Messages returns the conversation sent for a connection description.
func Messages(connectionContext string) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPrompt, connectionContext)},
	}
}

// Suggest implements Suggester and returns the content of the first choice.
func (c *Client) Suggest(ctx context.Context, connectionContext string) (string, error) {
	if c.apiKey == "" {
		return "", errors.WithStack(ErrMissingAPIKey)
	}

	var result chatResponse
	var failure errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(&chatRequest{Model: c.model, Messages: Messages(connectionContext)}).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", errors.Wrap(err, "chat completion request")
	}
	if resp.StatusCode() != http.StatusOK {
		upstream := failure.Error.Message
		if upstream == "" {
			upstream = strings.TrimSpace(resp.String())
		}
		return "", errors.Errorf("%d %s", resp.StatusCode(), upstream)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", errors.WithStack(ErrEmptySuggestion)
	}
	return result.Choices[0].Message.Content, nil
}
