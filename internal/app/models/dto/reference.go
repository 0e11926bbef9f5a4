package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reference points at another record of the same tenant. Clients send it as
// a bare string (an id or a name) or as an object carrying id and/or name.
type Reference struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	// bare is set when the client sent a plain string, which may be either
	bare bool
}

// Ref builds a Reference the way a bare JSON string decodes
func Ref(value string) Reference {
	return Reference{ID: value, Name: value, bare: true}
}

// RefByID builds an object reference carrying only an id
func RefByID(id string) Reference {
	return Reference{ID: id}
}

// UnmarshalJSON accepts null, a string, a number or an {id, name} object
func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Reference{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(strings.TrimSpace(s))
		return nil
	case '{':
		var obj struct {
			ID   json.RawMessage `json:"id"`
			Name string          `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		id, err := scalarString(obj.ID)
		if err != nil {
			return fmt.Errorf("reference id: %w", err)
		}
		*r = Reference{ID: id, Name: strings.TrimSpace(obj.Name)}
		return nil
	}

	id, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("reference must be a string or an object with id/name: %w", err)
	}
	*r = Reference{ID: id}
	return nil
}

// MarshalJSON writes the reference back in the shape it arrived in
func (r Reference) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("null"), nil
	}
	if r.bare {
		return json.Marshal(r.ID)
	}
	type plain Reference
	return json.Marshal(plain(r))
}

// IsEmpty reports a reference that carries neither id nor name
func (r Reference) IsEmpty() bool {
	return r.ID == "" && r.Name == ""
}

// Is reports whether the reference is the given sentinel ("none", "other")
func (r Reference) Is(sentinel string) bool {
	key := r.ID
	if key == "" {
		key = r.Name
	}
	return strings.EqualFold(key, sentinel)
}

// Candidates lists the values to try in order: id first, then name
func (r Reference) Candidates() []string {
	out := make([]string, 0, 2)
	if r.ID != "" {
		out = append(out, r.ID)
	}
	if r.Name != "" && r.Name != r.ID {
		out = append(out, r.Name)
	}
	return out
}

// String is used in log lines and error messages
func (r Reference) String() string {
	switch {
	case r.Name != "":
		return r.Name
	default:
		return r.ID
	}
}

func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unsupported value %s", raw)
	}
	return n.String(), nil
}
