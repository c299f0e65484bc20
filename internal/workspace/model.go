package workspace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the longest display name accepted, in runes.
const MaxNameLength = 60

// SlugMode records whether the draft slug still follows the name. The
// transition from SlugAuto to SlugManual is one way.
type SlugMode int

const (
	// SlugAuto recomputes the slug from every name change.
	SlugAuto SlugMode = iota
	// SlugManual keeps whatever the user typed into the slug field.
	SlugManual
)

func (m SlugMode) String() string {
	if m == SlugManual {
		return "manual"
	}
	return "auto"
}

// MarshalText encodes the mode as "auto" or "manual".
func (m SlugMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes "auto" or "manual".
func (m *SlugMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "auto", "":
		*m = SlugAuto
	case "manual":
		*m = SlugManual
	default:
		return fmt.Errorf("unknown slug mode %q", text)
	}
	return nil
}

// Draft is the workspace form while the user types.
type Draft struct {
	Name string   `json:"name"`
	Slug string   `json:"slug"`
	Mode SlugMode `json:"slug_mode"`
}

// SetName updates the name and, unless the slug was edited by hand,
// re-derives the slug.
func (d *Draft) SetName(name string) {
	d.Name = name
	if d.Mode == SlugAuto {
		d.Slug = Slugify(name)
	}
}

// SetSlug stores a hand-typed slug and stops automatic derivation for the
// rest of the draft's life.
func (d *Draft) SetSlug(slug string) {
	d.Slug = slug
	d.Mode = SlugManual
}

// Request returns the creation request for the draft with surrounding
// whitespace removed.
func (d Draft) Request() Request {
	return Request{Name: strings.TrimSpace(d.Name), Slug: strings.TrimSpace(d.Slug)}
}

// Request is the body of a workspace creation call. An empty Slug lets the
// server derive one.
type Request struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Validate checks the request before it is sent.
func (r Request) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if r.Slug != "" && !ValidSlug(r.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

// Created is the server's copy of a newly created workspace. Fields the flow
// does not read are kept in Extra.
type Created struct {
	ID    string
	Name  string
	Slug  string
	Role  string
	Extra map[string]json.RawMessage
}

var createdFields = map[string]struct{}{"id": {}, "name": {}, "slug": {}, "role": {}}

// UnmarshalJSON accepts string or numeric ids and keeps unknown fields.
func (w *Created) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Created
	for key, dst := range map[string]*string{"id": &out.ID, "name": &out.Name, "slug": &out.Slug, "role": &out.Role} {
		v, err := looseString(raw[key])
		if err != nil {
			return fmt.Errorf("workspace %s: %w", key, err)
		}
		*dst = v
	}
	for k, v := range raw {
		if _, ok := createdFields[k]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}
	*w = out
	return nil
}

// MarshalJSON writes the known fields next to the retained extras.
func (w Created) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(w.Extra)+4)
	for k, v := range w.Extra {
		out[k] = v
	}
	out["id"] = w.ID
	out["name"] = w.Name
	out["slug"] = w.Slug
	out["role"] = w.Role
	return json.Marshal(out)
}

func looseString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", err
	}
	return n.String(), nil
}
