package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
)

// testDatabaseURI names an external database for the backend tests. When unset, only the
// in-process backends are tested.
const testDatabaseURI = "NEXUS_TEST_DATABASE_URI"

// runOwnershipContract exercises a store with two owners and checks that neither can see, change
// or delete the other's connections.
func runOwnershipContract(t *testing.T, s Store) {
	ctx := context.Background()
	ownerA := "owner-a-" + time.Now().Format("150405.000000")
	ownerB := "owner-b-" + time.Now().Format("150405.000000")

	ann, err := s.Insert(ctx, ownerA, model.Connection{
		Name:         "Ann",
		Relationship: "Friend",
		Importance:   model.ImportanceHigh,
		CTOs:         model.StringList{"call on Sunday"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, ann.ID)
	assert.Equal(t, ownerA, ann.OwnerID)

	bob, err := s.Insert(ctx, ownerA, model.Connection{Name: "Bob", OwnerID: ownerB})
	require.NoError(t, err)
	assert.Equal(t, ownerA, bob.OwnerID)

	carla, err := s.Insert(ctx, ownerB, model.Connection{Name: "Carla"})
	require.NoError(t, err)

	listA, err := s.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Ann", "Bob"}, names(listA))
	for _, c := range listA {
		assert.Equal(t, ownerA, c.OwnerID)
		assert.NotNil(t, c.CTOs)
		assert.NotNil(t, c.FutureTalkingPoints)
	}

	listB, err := s.ListByOwner(ctx, ownerB)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carla"}, names(listB))

	// A foreign owner matches nothing and changes nothing.
	hijack := "Mallory"
	result, err := s.ReplaceFields(ctx, ownerB, model.ConnectionPatch{ID: &ann.ID, Name: &hijack})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.MatchedCount)
	deleted, err := s.DeleteByIDAndOwner(ctx, ownerB, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	// The owner updates only the fields present in the patch.
	notes := "moved to Lisbon"
	points := model.StringList{"new flat", "job"}
	result, err = s.ReplaceFields(ctx, ownerA, model.ConnectionPatch{ID: &ann.ID, Notes: &notes, FutureTalkingPoints: &points})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MatchedCount)

	listA, err = s.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	updated := find(listA, ann.ID)
	require.NotNil(t, updated)
	assert.Equal(t, "Ann", updated.Name)
	assert.Equal(t, "Friend", updated.Relationship)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, model.StringList{"call on Sunday"}, updated.CTOs)
	assert.Equal(t, points, updated.FutureTalkingPoints)

	// Deleting twice deletes once.
	deleted, err = s.DeleteByIDAndOwner(ctx, ownerA, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	deleted, err = s.DeleteByIDAndOwner(ctx, ownerA, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	listA, err = s.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann"}, names(listA))

	for _, cleanup := range []struct{ owner, id string }{{ownerA, ann.ID}, {ownerB, carla.ID}} {
		_, err := s.DeleteByIDAndOwner(ctx, cleanup.owner, cleanup.id)
		require.NoError(t, err)
	}
}

func names(connections []model.Connection) []string {
	result := make([]string, 0, len(connections))
	for _, c := range connections {
		result = append(result, c.Name)
	}
	return result
}

func find(connections []model.Connection, id string) *model.Connection {
	for i := range connections {
		if connections[i].ID == id {
			return &connections[i]
		}
	}
	return nil
}

// openMigratedSQLite creates a SQLite database in a temporary directory with the schema applied.
func openMigratedSQLite(t *testing.T) Store {
	uri := "sqlite://" + filepath.Join(t.TempDir(), "nexus.db")
	db, dialect, err := OpenSQL(uri)
	require.NoError(t, err)
	script, err := Schema(dialect)
	require.NoError(t, err)
	defer script.Close()

	require.NoError(t, Migrate(context.Background(), sqlx.NewDb(db, dialect), script))

	s, err := NewSQLStore(db, dialect)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestMemoryStoreOwnership(t *testing.T) {
	runOwnershipContract(t, NewMemoryStore())
}

func TestSQLiteStoreOwnership(t *testing.T) {
	runOwnershipContract(t, openMigratedSQLite(t))
}

// TestExternalStoreOwnership runs the contract against the database named by
// NEXUS_TEST_DATABASE_URI, which must already have the schema for SQL backends.
func TestExternalStoreOwnership(t *testing.T) {
	uri := os.Getenv(testDatabaseURI)
	if uri == "" {
		t.Skipf("%s is not set", testDatabaseURI)
	}
	s, err := Open(uri, DefaultDatabase+"_test")
	require.NoError(t, err)
	defer s.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Ping(ctx))
	if mongoStore, ok := s.(*MongoStore); ok {
		require.NoError(t, mongoStore.EnsureIndexes(ctx))
	}
	runOwnershipContract(t, s)
}

// TestMemoryStoreIsolatesLists expects that callers cannot modify stored lists through the
// returned values.
func TestMemoryStoreIsolatesLists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c, err := s.Insert(ctx, "owner", model.Connection{Name: "Ann", CTOs: model.StringList{"call"}})
	require.NoError(t, err)
	c.CTOs[0] = "changed"

	list, err := s.ListByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"call"}, list[0].CTOs)
}

// TestMemoryStoreOrder expects connections in insertion order.
func TestMemoryStoreOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, name := range []string{"Carla", "Ann", "Bob"} {
		_, err := s.Insert(ctx, "owner", model.Connection{Name: name})
		require.NoError(t, err)
	}
	list, err := s.ListByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"Carla", "Ann", "Bob"}, names(list))
}

// TestStatements verifies that scripts are split at semicolons and comment lines are dropped.
func TestStatements(t *testing.T) {
	statements, err := Statements(strings.NewReader(`-- first table
CREATE TABLE a (
    id INT
);
CREATE INDEX b ON a (id);
SELECT 1`))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE a (     id INT );",
		"CREATE INDEX b ON a (id);",
		"SELECT 1",
	}, statements)
}

// TestSchemaScripts verifies that both embedded scripts create the connections table.
func TestSchemaScripts(t *testing.T) {
	for _, dialect := range []string{"mysql", "sqlite3"} {
		script, err := Schema(dialect)
		require.NoError(t, err)
		statements, err := Statements(script)
		script.Close()
		require.NoError(t, err)
		require.NotEmpty(t, statements, dialect)
		assert.Contains(t, statements[0], "CREATE TABLE", dialect)
		assert.Contains(t, statements[0], "connections", dialect)
	}
}

// TestLongFreeFormDates expects date fields of any accepted length to come back unchanged.
func TestLongFreeFormDates(t *testing.T) {
	ctx := context.Background()
	longDate := strings.Repeat("sometime after the summer holidays, ", 10)
	for name, s := range map[string]Store{"memory": NewMemoryStore(), "sqlite": openMigratedSQLite(t)} {
		inserted, err := s.Insert(ctx, "owner", model.Connection{Name: "Ann", LastContact: longDate})
		require.NoError(t, err, name)

		next := longDate + "or later"
		_, err = s.ReplaceFields(ctx, "owner", model.ConnectionPatch{ID: &inserted.ID, NextTalkDate: &next})
		require.NoError(t, err, name)

		list, err := s.ListByOwner(ctx, "owner")
		require.NoError(t, err, name)
		require.Len(t, list, 1, name)
		assert.Equal(t, longDate, list[0].LastContact, name)
		assert.Equal(t, next, list[0].NextTalkDate, name)
	}
}

// TestMySQLSchemaFreeFormColumns expects the free-form date columns to be unbounded text.
func TestMySQLSchemaFreeFormColumns(t *testing.T) {
	script, err := Schema("mysql")
	require.NoError(t, err)
	defer script.Close()
	statements, err := Statements(script)
	require.NoError(t, err)
	for _, column := range []string{"last_contact", "next_contact", "last_talked_date", "next_talk_date"} {
		assert.Regexp(t, regexp.MustCompile(column+`\s+TEXT\s+NOT NULL`), statements[0], column)
	}
}

// TestMemoryStoreUnchangedUpdate expects an update with the stored values to match without
// modifying.
func TestMemoryStoreUnchangedUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ann, err := s.Insert(ctx, "owner", model.Connection{Name: "Ann", CTOs: model.StringList{"call"}})
	require.NoError(t, err)

	name, ctos := "Ann", model.StringList{"call"}
	result, err := s.ReplaceFields(ctx, "owner", model.ConnectionPatch{ID: &ann.ID, Name: &name, CTOs: &ctos})
	require.NoError(t, err)
	assert.Equal(t, UpdateResult{MatchedCount: 1, ModifiedCount: 0}, result)

	name = "Annie"
	result, err = s.ReplaceFields(ctx, "owner", model.ConnectionPatch{ID: &ann.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, UpdateResult{MatchedCount: 1, ModifiedCount: 1}, result)
}
