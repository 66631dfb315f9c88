// Package model holds the response and request bodies of the connections REST API that are not
// connections themselves. Clients of the API can use them directly.
package model

// InsertResult is returned when a connection has been created.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult is returned when a connection has been updated.
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult is returned when a connection has been deleted.
type DeleteResult struct {
	Success bool `json:"success"`
}

// SuggestionRequest asks for an AI suggestion about a connection. Context is free text
// describing the connection.
type SuggestionRequest struct {
	Context string `json:"context"`
}

// SuggestionResponse carries the generated suggestion.
type SuggestionResponse struct {
	Suggestion string `json:"suggestion"`
}

// ErrorResponse is the body of every failed request. Details and Stack are only filled in by
// the suggestion endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}
