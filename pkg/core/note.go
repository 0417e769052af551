package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks ids generated client-side for notes the server has not
// acknowledged yet. Server-assigned ids never carry this prefix, so local and
// remote ids cannot collide.
const LocalIDPrefix = "local-"

// NoteID identifies a note. The server assigns ids as strings or numbers;
// notes created offline carry a generated local id until the create
// round-trips.
type NoteID string

// NewLocalID returns a fresh temporary id for a note pending server
// acknowledgement.
func NewLocalID() NoteID {
	return NoteID(LocalIDPrefix + uuid.NewString())
}

// Local reports whether the id was generated client-side.
func (id NoteID) Local() bool {
	return strings.HasPrefix(string(id), LocalIDPrefix)
}

// UnmarshalJSON accepts both string and numeric ids, since the remote API is
// not consistent about which it returns.
func (id *NoteID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = NoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = NoteID(n.String())
		return nil
	}
	return fmt.Errorf("note id must be a string or number, got %s", data)
}

// Image is an attachment reference: either an inline base64 payload or a
// remote URL, never both.
type Image struct {
	URL  string `json:"url,omitempty"`
	Data string `json:"data,omitempty"`
	MIME string `json:"mime,omitempty"`
}

// Note is the central entity of the domain.
type Note struct {
	ID        NoteID    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Images    []Image   `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
