package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Importance tells how much attention a connection deserves. The dashboard uses it for the
// visual treatment of a card.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// StringList is an ordered list of free-text items such as call-to-actions or talking points.
// SQL backends store it as a JSON array in a text column.
type StringList []string

// MarshalJSON always renders a JSON array, never null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	if items == nil {
		items = []string{}
	}
	*l = items
	return nil
}

// Connection is a person the user keeps in touch with. Every connection belongs to exactly one
// owner, the user id issued by the identity provider.
//
// The ID is assigned by the store on insert. The OwnerID is stamped by the server from the
// verified identity and is never taken from a request body.
type Connection struct {
	ID                  string     `json:"_id,omitempty"       bson:"-"                   db:"id"`
	OwnerID             string     `json:"ownerId,omitempty"   bson:"ownerId"             db:"owner_id"`
	Name                string     `json:"name"                bson:"name"                db:"name"`
	Relationship        string     `json:"relationship"        bson:"relationship"        db:"relationship"`
	LastContact         string     `json:"lastContact"         bson:"lastContact"         db:"last_contact"`
	NextContact         string     `json:"nextContact"         bson:"nextContact"         db:"next_contact"`
	LastTalkedDate      string     `json:"lastTalkedDate"      bson:"lastTalkedDate"      db:"last_talked_date"`
	NextTalkDate        string     `json:"nextTalkDate"        bson:"nextTalkDate"        db:"next_talk_date"`
	Notes               string     `json:"notes"               bson:"notes"               db:"notes"`
	Importance          Importance `json:"importance"          bson:"importance"          db:"importance"`
	LastConversation    string     `json:"lastConversation"    bson:"lastConversation"    db:"last_conversation"`
	LastTalkedAbout     string     `json:"lastTalkedAbout"     bson:"lastTalkedAbout"     db:"last_talked_about"`
	CTOs                StringList `json:"ctos"                bson:"ctos"                db:"ctos"`
	FutureTalkingPoints StringList `json:"futureTalkingPoints" bson:"futureTalkingPoints" db:"future_talking_points"`
}

// Normalize replaces nil lists with empty ones so that every backend persists arrays.
func (c *Connection) Normalize() {
	if c.CTOs == nil {
		c.CTOs = StringList{}
	}
	if c.FutureTalkingPoints == nil {
		c.FutureTalkingPoints = StringList{}
	}
}

// Field is one content field of a connection. Key is the JSON and BSON name, Column the SQL
// column name.
type Field struct {
	Key    string
	Column string
	Value  any
}

// Fields returns all content fields of the connection in a stable order. Id and owner are not
// content fields.
func (c *Connection) Fields() []Field {
	return []Field{
		{"name", "name", c.Name},
		{"relationship", "relationship", c.Relationship},
		{"lastContact", "last_contact", c.LastContact},
		{"nextContact", "next_contact", c.NextContact},
		{"lastTalkedDate", "last_talked_date", c.LastTalkedDate},
		{"nextTalkDate", "next_talk_date", c.NextTalkDate},
		{"notes", "notes", c.Notes},
		{"importance", "importance", c.Importance},
		{"lastConversation", "last_conversation", c.LastConversation},
		{"lastTalkedAbout", "last_talked_about", c.LastTalkedAbout},
		{"ctos", "ctos", c.CTOs},
		{"futureTalkingPoints", "future_talking_points", c.FutureTalkingPoints},
	}
}

// ConnectionPatch is the body of an update request. A nil field was not part of the request and
// keeps its stored value. Lists are replaced as a whole. There is deliberately no owner field:
// the owner of a connection cannot be changed.
type ConnectionPatch struct {
	ID                  *string     `json:"_id"`
	Name                *string     `json:"name"`
	Relationship        *string     `json:"relationship"`
	LastContact         *string     `json:"lastContact"`
	NextContact         *string     `json:"nextContact"`
	LastTalkedDate      *string     `json:"lastTalkedDate"`
	NextTalkDate        *string     `json:"nextTalkDate"`
	Notes               *string     `json:"notes"`
	Importance          *Importance `json:"importance"`
	LastConversation    *string     `json:"lastConversation"`
	LastTalkedAbout     *string     `json:"lastTalkedAbout"`
	CTOs                *StringList `json:"ctos"`
	FutureTalkingPoints *StringList `json:"futureTalkingPoints"`
}

// HasID reports whether the patch names the connection to update.
func (p *ConnectionPatch) HasID() bool {
	return p.ID != nil && *p.ID != ""
}

// Fields returns the fields present in the patch, in the same order as Connection.Fields.
func (p *ConnectionPatch) Fields() []Field {
	var fields []Field
	addString := func(key, column string, v *string) {
		if v != nil {
			fields = append(fields, Field{key, column, *v})
		}
	}
	addList := func(key, column string, v *StringList) {
		if v != nil {
			list := *v
			if list == nil {
				list = StringList{}
			}
			fields = append(fields, Field{key, column, list})
		}
	}
	addString("name", "name", p.Name)
	addString("relationship", "relationship", p.Relationship)
	addString("lastContact", "last_contact", p.LastContact)
	addString("nextContact", "next_contact", p.NextContact)
	addString("lastTalkedDate", "last_talked_date", p.LastTalkedDate)
	addString("nextTalkDate", "next_talk_date", p.NextTalkDate)
	addString("notes", "notes", p.Notes)
	if p.Importance != nil {
		fields = append(fields, Field{"importance", "importance", *p.Importance})
	}
	addString("lastConversation", "last_conversation", p.LastConversation)
	addString("lastTalkedAbout", "last_talked_about", p.LastTalkedAbout)
	addList("ctos", "ctos", p.CTOs)
	addList("futureTalkingPoints", "future_talking_points", p.FutureTalkingPoints)
	return fields
}

// Apply copies the fields present in the patch onto the connection.
func (p *ConnectionPatch) Apply(c *Connection) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, p.Name)
	set(&c.Relationship, p.Relationship)
	set(&c.LastContact, p.LastContact)
	set(&c.NextContact, p.NextContact)
	set(&c.LastTalkedDate, p.LastTalkedDate)
	set(&c.NextTalkDate, p.NextTalkDate)
	set(&c.Notes, p.Notes)
	if p.Importance != nil {
		c.Importance = *p.Importance
	}
	set(&c.LastConversation, p.LastConversation)
	set(&c.LastTalkedAbout, p.LastTalkedAbout)
	if p.CTOs != nil {
		c.CTOs = append(StringList{}, *p.CTOs...)
	}
	if p.FutureTalkingPoints != nil {
		c.FutureTalkingPoints = append(StringList{}, *p.FutureTalkingPoints...)
	}
}

// PatchFrom builds a patch that sets every content field of the connection. The dashboard
// saves a whole draft this way.
func PatchFrom(c Connection) ConnectionPatch {
	id := c.ID
	importance := c.Importance
	ctos := append(StringList{}, c.CTOs...)
	points := append(StringList{}, c.FutureTalkingPoints...)
	return ConnectionPatch{
		ID:                  &id,
		Name:                &c.Name,
		Relationship:        &c.Relationship,
		LastContact:         &c.LastContact,
		NextContact:         &c.NextContact,
		LastTalkedDate:      &c.LastTalkedDate,
		NextTalkDate:        &c.NextTalkDate,
		Notes:               &c.Notes,
		Importance:          &importance,
		LastConversation:    &c.LastConversation,
		LastTalkedAbout:     &c.LastTalkedAbout,
		CTOs:                &ctos,
		FutureTalkingPoints: &points,
	}
}
