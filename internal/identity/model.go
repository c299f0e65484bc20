package identity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Identity is the authenticated user as the league API reports it. Fields the
// onboarding flow does not interpret are kept in Extra so a merge or a cache
// round trip never drops them.
type Identity struct {
	ID    string
	Name  string
	Phone string
	Role  string
	Extra map[string]json.RawMessage
}

var knownFields = map[string]struct{}{"id": {}, "name": {}, "phone": {}, "role": {}}

// UnmarshalJSON accepts string or numeric ids and keeps unknown fields.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Identity
	var err error
	if out.ID, err = looseString(raw["id"]); err != nil {
		return fmt.Errorf("identity id: %w", err)
	}
	if out.Name, err = looseString(raw["name"]); err != nil {
		return fmt.Errorf("identity name: %w", err)
	}
	if out.Phone, err = looseString(raw["phone"]); err != nil {
		return fmt.Errorf("identity phone: %w", err)
	}
	if out.Role, err = looseString(raw["role"]); err != nil {
		return fmt.Errorf("identity role: %w", err)
	}
	for k, v := range raw {
		if _, ok := knownFields[k]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}
	*i = out
	return nil
}

// MarshalJSON writes the known fields next to the retained extras.
func (i Identity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Extra)+4)
	for k, v := range i.Extra {
		out[k] = v
	}
	out["id"] = i.ID
	out["name"] = i.Name
	out["phone"] = i.Phone
	out["role"] = i.Role
	return json.Marshal(out)
}

// Merge overlays a server response on the cached snapshot. Non-empty server
// fields win, except Name which is forced to what the user typed: the server
// may echo a stale value.
func Merge(cached, server Identity, typedName string) Identity {
	merged := cached
	if server.ID != "" {
		merged.ID = server.ID
	}
	if server.Phone != "" {
		merged.Phone = server.Phone
	}
	if server.Role != "" {
		merged.Role = server.Role
	}
	if len(cached.Extra)+len(server.Extra) > 0 {
		merged.Extra = make(map[string]json.RawMessage, len(cached.Extra)+len(server.Extra))
		for k, v := range cached.Extra {
			merged.Extra[k] = v
		}
		for k, v := range server.Extra {
			merged.Extra[k] = v
		}
	}
	merged.Name = typedName
	return merged
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
