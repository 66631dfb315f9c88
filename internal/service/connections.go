package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/connections-service/internal/identity"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
	"gitlab.com/dirk.krummacker/connections-service/internal/store"
	pubmodel "gitlab.com/dirk.krummacker/connections-service/pkg/model"
)

// findConnections responds with all connections of the signed in user as JSON, in the store's
// default order. A user without connections gets an empty list.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/connections --header "Authorization: Bearer $TOKEN"
func (s *Service) findConnections(c *gin.Context) {
	connections, err := s.store.ListByOwner(c.Request.Context(), identity.UserID(c))
	if err != nil {
		s.internalError(c, err, "list connections")
		return
	}
	c.IndentedJSON(http.StatusOK, connections)
}

// createConnection stores the connection specified in the request's JSON for the signed in user.
// An id or owner in the JSON is ignored: the store assigns the id and the owner is always the
// caller. It responds with the id of the new connection.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/connections --request "POST" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"name": "Ann", "relationship": "Friend", "importance": "high"}'
func (s *Service) createConnection(c *gin.Context) {
	var newConnection model.Connection
	if err := c.ShouldBindJSON(&newConnection); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if err := newConnection.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inserted, err := s.store.Insert(c.Request.Context(), identity.UserID(c), newConnection)
	if err != nil {
		s.internalError(c, err, "insert connection")
		return
	}
	c.IndentedJSON(http.StatusOK, pubmodel.InsertResult{Acknowledged: true, InsertedID: inserted.ID})
}

// updateConnection sets the values specified in the JSON (and only those) on the connection
// named by the "_id" field, provided that it belongs to the signed in user. Lists are replaced
// as a whole. A connection of another user is reported exactly like a missing one.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/api/connections --request "PUT" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"_id": "66f1c2...", "notes": "moved to Lisbon"}'
//	> curl http://localhost:8080/api/connections --request "PUT" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"_id": "66f1c2...", "ctos": ["call on Sunday"]}'
func (s *Service) updateConnection(c *gin.Context) {
	var patch model.ConnectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if !patch.HasID() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No ID provided"})
		return
	}

	// It only makes sense to continue if we have at least one value to update.
	if len(patch.Fields()) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no values to be updated"})
		return
	}
	if err := patch.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.store.ReplaceFields(c.Request.Context(), identity.UserID(c), patch)
	switch {
	case errors.Is(err, store.ErrNoID):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No ID provided"})
		return
	case errors.Is(err, store.ErrNoFields):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no values to be updated"})
		return
	case err != nil:
		s.internalError(c, err, "update connection")
		return
	}
	if result.MatchedCount == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Connection not found or not authorized to update"})
		return
	}
	c.IndentedJSON(http.StatusOK, pubmodel.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
	})
}

// deleteConnection deletes the connection whose id is given by the URL parameter 'id', provided
// that it belongs to the signed in user.
//
// Example REST API call:
//
//	> curl "http://localhost:8080/api/connections?id=66f1c2..." --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (s *Service) deleteConnection(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No ID provided"})
		return
	}
	deleted, err := s.store.DeleteByIDAndOwner(c.Request.Context(), identity.UserID(c), id)
	if err != nil {
		s.internalError(c, err, "delete connection")
		return
	}
	if deleted == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Connection not found or not authorized to delete"})
		return
	}
	c.IndentedJSON(http.StatusOK, pubmodel.DeleteResult{Success: true})
}
