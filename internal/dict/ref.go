package dict

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RefKind discriminates a TaxonomyRef.
type RefKind string

const (
	// RefExisting points at a taxonomy entry the server already knows.
	RefExisting RefKind = "existing"
	// RefNew carries a user-provided name that is not in the taxonomy yet.
	RefNew RefKind = "new"
)

// TaxonomyRef is the tagged union behind the upstream's polymorphic
// string-or-object taxonomy fields. On the wire a field is either a raw
// string (a name not yet in the taxonomy) or an object reference
// {id, name, isApproved[, code]}; exactly one of the two shapes is active
// at any time.
type TaxonomyRef struct {
	Kind     RefKind `json:"kind"`
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Code     string  `json:"code,omitempty"`
	Approved bool    `json:"isApproved,omitempty"`
}

// ExistingRef builds a reference to a known taxonomy entry.
func ExistingRef(id, name string, approved bool) TaxonomyRef {
	return TaxonomyRef{Kind: RefExisting, ID: id, Name: name, Approved: approved}
}

// NewRef builds a reference to a not-yet-created taxonomy entry.
func NewRef(name string) TaxonomyRef {
	return TaxonomyRef{Kind: RefNew, Name: name}
}

// IsZero reports whether the ref carries no value at all.
func (r TaxonomyRef) IsZero() bool {
	return r.Kind == "" && r.ID == "" && r.Name == ""
}

func (r *TaxonomyRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*r = TaxonomyRef{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("taxonomy ref string: %w", err)
		}
		*r = NewRef(name)
		return nil
	}

	var obj struct {
		ID       string `json:"id"`
		AltID    string `json:"_id"`
		Name     string `json:"name"`
		Code     string `json:"code"`
		Approved bool   `json:"isApproved"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("taxonomy ref object: %w", err)
	}
	id := obj.ID
	if id == "" {
		id = obj.AltID
	}
	*r = TaxonomyRef{Kind: RefExisting, ID: id, Name: obj.Name, Code: obj.Code, Approved: obj.Approved}
	return nil
}

func (r TaxonomyRef) MarshalJSON() (data []byte, err error) {
	switch r.Kind {
	case RefNew:
		return json.Marshal(r.Name)
	case RefExisting:
		return json.Marshal(struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Code     string `json:"code,omitempty"`
			Approved bool   `json:"isApproved"`
		}{r.ID, r.Name, r.Code, r.Approved})
	default:
		return []byte("null"), nil
	}
}
