package service

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/connections-service/internal/metrics"
	pubmodel "gitlab.com/dirk.krummacker/connections-service/pkg/model"
)

// getSuggestion asks the text-generation service for advice on the connection described by the
// "context" field. Failures respond with 500 and carry the upstream message and a stack trace.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/ai-suggestion --request "POST" --header "Content-Type: application/json" --data '{"context": "Name: Ann, Relationship: Friend, Last Contact: 2024-05-01, Notes: likes tea"}'
func (s *Service) getSuggestion(c *gin.Context) {
	var request pubmodel.SuggestionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	text, err := s.suggester.Suggest(c.Request.Context(), request.Context)
	if err != nil {
		metrics.ObserveSuggestion(metrics.SuggestionFailed)
		s.log.Error().Stack().Err(err).Msg("AI suggestion failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, pubmodel.ErrorResponse{
			Error:   "Failed to get AI suggestion",
			Details: err.Error(),
			Stack:   fmt.Sprintf("%+v", err),
		})
		return
	}
	metrics.ObserveSuggestion(metrics.SuggestionSucceeded)
	c.IndentedJSON(http.StatusOK, pubmodel.SuggestionResponse{Suggestion: text})
}
