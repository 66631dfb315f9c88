package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
)

// columns is the select list for a full connection.
const columns = `id, owner_id, name, relationship, last_contact, next_contact, last_talked_date,
	next_talk_date, notes, importance, last_conversation, last_talked_about, ctos,
	future_talking_points`

// SQLStore keeps connections in a relational table, one row per connection. The lists are
// stored as JSON text. It works with MySQL and SQLite, which share the '?' bind syntax.
type SQLStore struct {
	// db is a handle to the database.
	db *sqlx.DB

	// insert is a prepared statement for creating a connection.
	insert *sqlx.NamedStmt

	// selectWhereOwner is a prepared statement for selecting all connections of an owner.
	selectWhereOwner *sqlx.Stmt

	// deleteWhereIdAndOwner is a prepared statement for deleting a connection of an owner.
	deleteWhereIdAndOwner *sqlx.Stmt

	// newID generates the id of a new connection.
	newID func() string
}

// NewSQLStore wraps the specified sql database and prepares all statements. The database
// argument can be a real database for production use or a mock database within unit tests.
func NewSQLStore(sqlDB *sql.DB, driverName string) (*SQLStore, error) {
	var err error
	s := &SQLStore{
		db:    sqlx.NewDb(sqlDB, driverName),
		newID: uuid.NewString,
	}

	// Prepared statements offer a significant speed increase if executed many times.
	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO connections (` + columns + `)
		VALUES (:id, :owner_id, :name, :relationship, :last_contact, :next_contact,
			:last_talked_date, :next_talk_date, :notes, :importance, :last_conversation,
			:last_talked_about, :ctos, :future_talking_points)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare insert")
	}
	s.selectWhereOwner, err = s.db.Preparex(`
		SELECT ` + columns + ` FROM connections WHERE owner_id = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare select")
	}
	s.deleteWhereIdAndOwner, err = s.db.Preparex(`
		DELETE FROM connections WHERE id = ? AND owner_id = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare delete")
	}
	return s, nil
}

// ListByOwner implements Store.
func (s *SQLStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Connection, error) {
	connections := []model.Connection{}
	if err := s.selectWhereOwner.SelectContext(ctx, &connections, ownerID); err != nil {
		return nil, errors.Wrap(err, "select connections")
	}
	for i := range connections {
		connections[i].Normalize()
	}
	return connections, nil
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, ownerID string, c model.Connection) (model.Connection, error) {
	c.ID = s.newID()
	c.OwnerID = ownerID
	c.Normalize()
	if _, err := s.insert.ExecContext(ctx, &c); err != nil {
		return model.Connection{}, errors.Wrap(err, "insert connection")
	}
	return c, nil
}

// ReplaceFields implements Store. Only the columns of the fields present in the patch are
// part of the UPDATE statement.
func (s *SQLStore) ReplaceFields(ctx context.Context, ownerID string, patch model.ConnectionPatch) (UpdateResult, error) {
	if !patch.HasID() {
		return UpdateResult{}, ErrNoID
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return UpdateResult{}, ErrNoFields
	}

	var args []interface{}
	assignments := make([]string, 0, len(fields))
	for _, f := range fields {
		assignments = append(assignments, f.Column+"=?")
		args = append(args, f.Value)
	}
	query := "UPDATE connections SET " + strings.Join(assignments, ", ") + " WHERE id=? AND owner_id=?"
	args = append(args, *patch.ID, ownerID)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "update connection")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "update connection")
	}
	// MySQL runs with clientFoundRows, SQLite always counts matches: affected means matched.
	return UpdateResult{MatchedCount: rowsAffected, ModifiedCount: rowsAffected}, nil
}

// DeleteByIDAndOwner implements Store.
func (s *SQLStore) DeleteByIDAndOwner(ctx context.Context, ownerID string, id string) (int64, error) {
	result, err := s.deleteWhereIdAndOwner.ExecContext(ctx, id, ownerID)
	if err != nil {
		return 0, errors.Wrap(err, "delete connection")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "delete connection")
	}
	return rowsAffected, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.PingContext(ctx), "ping database")
}

// Close implements Store.
func (s *SQLStore) Close(_ context.Context) error {
	return errors.Wrap(s.db.Close(), "close database")
}
