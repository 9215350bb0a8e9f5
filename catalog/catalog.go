// Package catalog defines the activities offered by the signup API.
//
// A Catalog is the full set of activities returned by GET /activities at one
// point in time. It is never merged or diffed: every fetch produces a new
// Catalog that replaces the previous one wholesale.
//
// The API returns the catalog as a JSON object keyed by activity name. Go maps
// do not keep key order, so Catalog decodes the object token by token and keeps
// the activities in the order the server sent them.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Activity is a signup-able offering with a capacity and a participant roster.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns the remaining capacity. The capacity invariant is owned by
// the server, so the result is negative when the roster is over capacity.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Catalog is an ordered set of activities keyed by name.
type Catalog struct {
	activities []Activity
	index      map[string]int
}

// New builds a Catalog from activities in the given order.
// A later activity with a duplicate name replaces the earlier one in place.
func New(activities ...Activity) Catalog {
	var c Catalog
	for _, a := range activities {
		c.put(a)
	}
	return c
}

func (c *Catalog) put(a Activity) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[a.Name]; ok {
		c.activities[i] = a
		return
	}
	c.index[a.Name] = len(c.activities)
	c.activities = append(c.activities, a)
}

// Len returns the number of activities.
func (c Catalog) Len() int {
	return len(c.activities)
}

// Names returns the activity names in server order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.activities))
	for i, a := range c.activities {
		names[i] = a.Name
	}
	return names
}

// Get returns the activity with the given name.
func (c Catalog) Get(name string) (Activity, bool) {
	i, ok := c.index[name]
	if !ok {
		return Activity{}, false
	}
	return c.activities[i], true
}

// Activities returns a copy of the activities in server order.
func (c Catalog) Activities() []Activity {
	result := make([]Activity, len(c.activities))
	copy(result, c.activities)
	return result
}

// UnmarshalJSON decodes a JSON object mapping activity name to activity details,
// preserving key order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("catalog must be a JSON object")
	}

	var result Catalog
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading activity name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in catalog", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading activity %q: %w", name, err)
		}
		if len(raw) == 0 || raw[0] != '{' {
			return fmt.Errorf("activity %q must be a JSON object", name)
		}

		var a Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("decoding activity %q: %w", name, err)
		}
		// An empty array decodes to a non-nil slice; null or absent leaves it nil.
		if a.Participants == nil {
			return fmt.Errorf("activity %q: participants must be an array", name)
		}
		a.Name = name
		result.put(a)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading catalog end: %w", err)
	}

	*c = result
	return nil
}

// MarshalJSON encodes the catalog in the wire format, preserving order.
func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c.activities {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')

		participants := a.Participants
		if participants == nil {
			participants = []string{}
		}
		a.Participants = participants
		details, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(details)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
