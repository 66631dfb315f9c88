// Package dashboard holds the state of a dashboard session: the connections of the user, the
// search term, the selected connection and its draft, and the suggestions fetched so far. All
// changes go through the API first; the local list is only changed when the API call succeeded.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
)

// API is what a session needs from the connections service.
type API interface {
	List(ctx context.Context) ([]model.Connection, error)
	Create(ctx context.Context, connection model.Connection) (string, error)
	Update(ctx context.Context, connection model.Connection) error
	Delete(ctx context.Context, id string) error
	Suggest(ctx context.Context, connectionContext string) (string, error)
}

// Mode is the state of the detail view.
type Mode int

const (
	NoneSelected Mode = iota
	Viewing
	Editing
)

func (m Mode) String() string {
	switch m {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	default:
		return "none-selected"
	}
}

// List names.
const (
	ListCTOs                = "ctos"
	ListFutureTalkingPoints = "futureTalkingPoints"
)

var (
	ErrNothingSelected    = errors.New("no connection selected")
	ErrNotEditing         = errors.New("not in edit mode")
	ErrUnknownConnection  = errors.New("unknown connection")
	ErrUnknownField       = errors.New("unknown field")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrSuggestionRequired = errors.New("a suggestion needs a connection id")
)

// Session is one user's dashboard. It is not safe for concurrent use, except for Suggest and
// Suggestion, which may run while other suggestions are loading.
type Session struct {
	api         API
	log         zerolog.Logger
	connections []model.Connection
	searchTerm  string
	selected    *model.Connection
	mode        Mode
	suggestions map[string]string
	suggestMu   sync.Mutex
	inflight    singleflight.Group
}

// NewSession creates an empty session. Call Load to fetch the connections.
func NewSession(api API, log zerolog.Logger) *Session {
	return &Session{api: api, log: log, suggestions: map[string]string{}}
}

// NewConnection returns the connection created by the "New Connection" action.
func NewConnection() model.Connection {
	return model.Connection{
		Name:                "New Connection",
		Importance:          model.ImportanceMedium,
		CTOs:                model.StringList{},
		FutureTalkingPoints: model.StringList{},
	}
}

// SuggestionContext describes a connection for the suggestion service.
func SuggestionContext(c model.Connection) string {
	return fmt.Sprintf("Name: %s, Relationship: %s, Last Contact: %s, Notes: %s",
		c.Name, c.Relationship, c.LastContact, c.Notes)
}

// AvatarURL returns the placeholder avatar of a connection.
func AvatarURL(id string) string {
	return "https://i.pravatar.cc/48?u=" + id
}

func clone(c model.Connection) model.Connection {
	c.CTOs = append(model.StringList{}, c.CTOs...)
	c.FutureTalkingPoints = append(model.StringList{}, c.FutureTalkingPoints...)
	return c
}

// Load fetches the connections of the user and replaces the local list.
func (s *Session) Load(ctx context.Context) error {
	connections, err := s.api.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load connections")
		return err
	}
	s.connections = connections
	return nil
}

// Connections returns all loaded connections.
func (s *Session) Connections() []model.Connection {
	return s.connections
}

// SetSearch sets the search term.
func (s *Session) SetSearch(term string) {
	s.searchTerm = term
}

// Visible returns the connections whose name or relationship contains the search term, ignoring
// case. The empty term matches everything.
func (s *Session) Visible() []model.Connection {
	term := strings.ToLower(s.searchTerm)
	var visible []model.Connection
	for _, c := range s.connections {
		if strings.Contains(strings.ToLower(c.Name), term) || strings.Contains(strings.ToLower(c.Relationship), term) {
			visible = append(visible, c)
		}
	}
	return visible
}

// Mode returns the state of the detail view.
func (s *Session) Mode() Mode {
	return s.mode
}

// Selected returns the selected connection. While editing, this is the draft.
func (s *Session) Selected() (model.Connection, bool) {
	if s.selected == nil {
		return model.Connection{}, false
	}
	return *s.selected, true
}

// Open selects the connection with the id for viewing. A draft of another connection is
// discarded.
func (s *Session) Open(id string) error {
	for _, c := range s.connections {
		if c.ID == id {
			selected := clone(c)
			s.selected = &selected
			s.mode = Viewing
			return nil
		}
	}
	return errors.Wrap(ErrUnknownConnection, id)
}

// Edit switches the selected connection to edit mode.
func (s *Session) Edit() error {
	if s.selected == nil {
		return ErrNothingSelected
	}
	s.mode = Editing
	return nil
}

// Close deselects the connection and discards any draft.
func (s *Session) Close() {
	s.selected = nil
	s.mode = NoneSelected
}

// SetField sets a text field of the draft. The key is the JSON name of the field.
func (s *Session) SetField(key string, value string) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	d := s.selected
	switch key {
	case "name":
		d.Name = value
	case "relationship":
		d.Relationship = value
	case "lastContact":
		d.LastContact = value
	case "nextContact":
		d.NextContact = value
	case "lastTalkedDate":
		d.LastTalkedDate = value
	case "nextTalkDate":
		d.NextTalkDate = value
	case "notes":
		d.Notes = value
	case "importance":
		d.Importance = model.Importance(value)
	case "lastConversation":
		d.LastConversation = value
	case "lastTalkedAbout":
		d.LastTalkedAbout = value
	default:
		return errors.Wrap(ErrUnknownField, key)
	}
	return nil
}

// AddItem appends an empty item to a list of the draft.
func (s *Session) AddItem(list string) error {
	items, err := s.list(list)
	if err != nil {
		return err
	}
	*items = append(*items, "")
	return nil
}

// SetItem replaces the item at the index of a list of the draft.
func (s *Session) SetItem(list string, index int, value string) error {
	items, err := s.list(list)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*items) {
		return errors.Wrapf(ErrIndexOutOfRange, "%s[%d]", list, index)
	}
	(*items)[index] = value
	return nil
}

// RemoveItem removes the item at the index of a list of the draft.
func (s *Session) RemoveItem(list string, index int) error {
	items, err := s.list(list)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*items) {
		return errors.Wrapf(ErrIndexOutOfRange, "%s[%d]", list, index)
	}
	*items = append((*items)[:index:index], (*items)[index+1:]...)
	return nil
}

func (s *Session) list(name string) (*model.StringList, error) {
	if err := s.requireEditing(); err != nil {
		return nil, err
	}
	switch name {
	case ListCTOs:
		return &s.selected.CTOs, nil
	case ListFutureTalkingPoints:
		return &s.selected.FutureTalkingPoints, nil
	default:
		return nil, errors.Wrap(ErrUnknownField, name)
	}
}

func (s *Session) requireEditing() error {
	if s.selected == nil {
		return ErrNothingSelected
	}
	if s.mode != Editing {
		return ErrNotEditing
	}
	return nil
}

// Save sends the draft to the service. On success the draft replaces the connection in the
// local list and the session returns to viewing. On failure nothing changes.
func (s *Session) Save(ctx context.Context) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	draft := clone(*s.selected)
	if err := s.api.Update(ctx, draft); err != nil {
		s.log.Error().Err(err).Str("id", draft.ID).Msg("Failed to save the connection")
		return err
	}
	for i := range s.connections {
		if s.connections[i].ID == draft.ID {
			s.connections[i] = draft
		}
	}
	s.mode = Viewing
	return nil
}

// Delete deletes the selected connection. On success it leaves the local list and the session
// has nothing selected. On failure nothing changes.
func (s *Session) Delete(ctx context.Context) error {
	if s.selected == nil {
		return ErrNothingSelected
	}
	id := s.selected.ID
	if err := s.api.Delete(ctx, id); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("Failed to delete the connection")
		return err
	}
	remaining := s.connections[:0:0]
	for _, c := range s.connections {
		if c.ID != id {
			remaining = append(remaining, c)
		}
	}
	s.connections = remaining
	s.Close()
	return nil
}

// New creates a connection with default values, appends it to the local list and opens it in
// edit mode.
func (s *Session) New(ctx context.Context) (model.Connection, error) {
	c := NewConnection()
	id, err := s.api.Create(ctx, c)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create the connection")
		return model.Connection{}, err
	}
	c.ID = id
	s.connections = append(s.connections, c)
	selected := clone(c)
	s.selected = &selected
	s.mode = Editing
	return c, nil
}

// Suggest returns the suggestion for the connection with the id. The first successful answer
// is cached for the rest of the session; a failure is not cached. Concurrent calls for the same
// id share one request.
func (s *Session) Suggest(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrSuggestionRequired
	}
	if suggestion, ok := s.Suggestion(id); ok {
		return suggestion, nil
	}
	var connection *model.Connection
	for i := range s.connections {
		if s.connections[i].ID == id {
			connection = &s.connections[i]
		}
	}
	if connection == nil {
		return "", errors.Wrap(ErrUnknownConnection, id)
	}
	connectionContext := SuggestionContext(*connection)
	result, err, _ := s.inflight.Do(id, func() (interface{}, error) {
		if suggestion, ok := s.Suggestion(id); ok {
			return suggestion, nil
		}
		suggestion, err := s.api.Suggest(ctx, connectionContext)
		if err != nil {
			s.log.Error().Err(err).Str("id", id).Msg("Failed to get AI suggestion")
			return "", err
		}
		s.suggestMu.Lock()
		s.suggestions[id] = suggestion
		s.suggestMu.Unlock()
		return suggestion, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Suggestion returns the cached suggestion for the connection with the id.
func (s *Session) Suggestion(id string) (string, bool) {
	s.suggestMu.Lock()
	defer s.suggestMu.Unlock()
	suggestion, ok := s.suggestions[id]
	return suggestion, ok
}
