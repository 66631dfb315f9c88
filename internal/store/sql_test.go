package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
)

var selectColumns = []string{
	"id", "owner_id", "name", "relationship", "last_contact", "next_contact", "last_talked_date",
	"next_talk_date", "notes", "importance", "last_conversation", "last_talked_about", "ctos",
	"future_talking_points",
}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that several statements are being
// prepared.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare("INSERT INTO connections")
	mock.ExpectPrepare("SELECT (.+) FROM connections WHERE owner_id = ?")
	mock.ExpectPrepare("DELETE FROM connections WHERE id = \\? AND owner_id = \\?")
}

// newMockStore prepares a SQL store on the mock database with a predictable id generator.
func newMockStore(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *SQLStore {
	expectPreparedStatements(mock)
	s, err := NewSQLStore(db, "sqlmock")
	require.NoError(t, err)
	s.newID = func() string { return "c-1" }
	return s
}

// TestSQLListByOwner expects that the owner is the only query argument and that list columns
// are read back from JSON.
func TestSQLListByOwner(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	rows := mock.NewRows(selectColumns).
		AddRow("c-1", "user-a", "Ann", "Friend", "2024-01-01", "", "", "", "likes tea", "high", "", "",
			`["call"]`, `[]`).
		AddRow("c-2", "user-a", "Bob", "Colleague", "", "", "", "", "", "low", "", "", nil, `["golf"]`)
	mock.ExpectQuery("SELECT (.+) FROM connections WHERE owner_id = ?").
		WithArgs("user-a").
		WillReturnRows(rows)

	connections, err := s.ListByOwner(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, connections, 2)
	assert.Equal(t, "Ann", connections[0].Name)
	assert.Equal(t, model.ImportanceHigh, connections[0].Importance)
	assert.Equal(t, model.StringList{"call"}, connections[0].CTOs)
	assert.Equal(t, model.StringList{}, connections[1].CTOs)
	assert.Equal(t, model.StringList{"golf"}, connections[1].FutureTalkingPoints)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestSQLListByOwnerEmpty expects an empty, non-nil list for an owner without connections.
func TestSQLListByOwnerEmpty(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectQuery("SELECT (.+) FROM connections WHERE owner_id = ?").
		WithArgs("user-b").
		WillReturnRows(mock.NewRows(selectColumns))

	connections, err := s.ListByOwner(context.Background(), "user-b")
	require.NoError(t, err)
	assert.NotNil(t, connections)
	assert.Empty(t, connections)
}

// TestSQLInsert expects that the owner argument wins over an owner in the connection and that
// nil lists are stored as empty arrays.
func TestSQLInsert(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("INSERT INTO connections").
		WithArgs("c-1", "user-a", "Ann", "Friend", "", "", "", "", "", "medium", "", "", "[]", `["golf"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, err := s.Insert(context.Background(), "user-a", model.Connection{
		OwnerID:             "intruder",
		Name:                "Ann",
		Relationship:        "Friend",
		Importance:          model.ImportanceMedium,
		FutureTalkingPoints: model.StringList{"golf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, "user-a", c.OwnerID)
	assert.Equal(t, model.StringList{}, c.CTOs)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestSQLInsertFails expects that a database error is passed on.
func TestSQLInsertFails(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("INSERT INTO connections").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	_, err := s.Insert(context.Background(), "user-a", model.Connection{Name: "Ann"})
	assert.ErrorContains(t, err, "disk full")
}

// TestSQLReplaceFields expects an UPDATE that only touches the columns present in the patch and
// is restricted to id and owner.
func TestSQLReplaceFields(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	id := "c-1"
	notes := "met at the lake"
	ctos := model.StringList{"send photos"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE connections SET notes=?, ctos=? WHERE id=? AND owner_id=?")).
		WithArgs(notes, `["send photos"]`, "c-1", "user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := s.ReplaceFields(context.Background(), "user-a",
		model.ConnectionPatch{ID: &id, Notes: &notes, CTOs: &ctos})
	require.NoError(t, err)
	assert.Equal(t, UpdateResult{MatchedCount: 1, ModifiedCount: 1}, result)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestSQLReplaceFieldsForeignOwner expects zero matches when the row belongs to someone else.
func TestSQLReplaceFieldsForeignOwner(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	id := "c-1"
	name := "Mallory"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE connections SET name=? WHERE id=? AND owner_id=?")).
		WithArgs(name, "c-1", "user-b").
		WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := s.ReplaceFields(context.Background(), "user-b", model.ConnectionPatch{ID: &id, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.MatchedCount)
}

// TestSQLReplaceFieldsRejectsIncompletePatches expects no statement at all for a patch without id
// or without fields.
func TestSQLReplaceFieldsRejectsIncompletePatches(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	name := "Ann"
	_, err := s.ReplaceFields(context.Background(), "user-a", model.ConnectionPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNoID)

	id := "c-1"
	_, err = s.ReplaceFields(context.Background(), "user-a", model.ConnectionPatch{ID: &id})
	assert.ErrorIs(t, err, ErrNoFields)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestSQLDelete expects the count of deleted rows, which is zero for a second delete.
func TestSQLDelete(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("DELETE FROM connections WHERE id = \\? AND owner_id = \\?").
		WithArgs("c-1", "user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM connections WHERE id = \\? AND owner_id = \\?").
		WithArgs("c-1", "user-a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := s.DeleteByIDAndOwner(context.Background(), "user-a", "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = s.DeleteByIDAndOwner(context.Background(), "user-a", "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestSQLPrepareFails expects that a failing prepare is reported by the constructor.
func TestSQLPrepareFails(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	mock.ExpectPrepare("INSERT INTO connections").WillReturnError(errors.New("no such table"))

	_, err := NewSQLStore(db, "sqlmock")
	assert.ErrorContains(t, err, "no such table")
}

// TestMySQLDSN verifies that matched rows are reported for updates.
func TestMySQLDSN(t *testing.T) {
	assert.Equal(t, "u:p@tcp(db:3306)/nexus?clientFoundRows=true", mysqlDSN("u:p@tcp(db:3306)/nexus"))
	assert.Equal(t, "u:p@tcp(db)/nexus?parseTime=true&clientFoundRows=true",
		mysqlDSN("u:p@tcp(db)/nexus?parseTime=true"))
	assert.Equal(t, "u@/nexus?clientFoundRows=false", mysqlDSN("u@/nexus?clientFoundRows=false"))
}

// TestOpen verifies the scheme dispatch.
func TestOpen(t *testing.T) {
	s, err := Open("memory://", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("postgres://localhost/nexus", "")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = Open("localhost:27017", "")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	assert.Equal(t, "mysql", Dialect("mysql://u@tcp(db)/nexus"))
	assert.Equal(t, "sqlite3", Dialect("sqlite://nexus.db"))
	assert.Equal(t, "", Dialect("mongodb://localhost"))
}
