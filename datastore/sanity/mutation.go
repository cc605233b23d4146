package sanity

import (
	"github.com/google/uuid"
)

// Mutation is one entry of a mutate request, e.g. {"create": {...}}.
type Mutation map[string]any

// Create wraps doc in a create mutation.
func Create(doc any) Mutation {
	return Mutation{"create": doc}
}

// CreateIfNotExists wraps doc in a createIfNotExists mutation.
func CreateIfNotExists(doc any) Mutation {
	return Mutation{"createIfNotExists": doc}
}

// Patch wraps op in a patch mutation.
func Patch(op PatchOperation) Mutation {
	return Mutation{"patch": op}
}

// PatchOperation mirrors the datastore's patch object. Within one patch the
// server applies setIfMissing before insert.
type PatchOperation struct {
	ID           string         `json:"id"`
	Set          map[string]any `json:"set,omitempty"`
	SetIfMissing map[string]any `json:"setIfMissing,omitempty"`
	Insert       *Insert        `json:"insert,omitempty"`
}

// Insert places items relative to an array selector such as "tweets[-1]".
type Insert struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
	Items  []any  `json:"items"`
}

// Reference points at another document. Array members carry a _key.
type Reference struct {
	Type string `json:"_type"`
	Ref  string `json:"_ref"`
	Key  string `json:"_key,omitempty"`
}

// NewReference creates a reference to the document id.
func NewReference(id string) Reference {
	return Reference{Type: "reference", Ref: id}
}

// NewArrayReference is a reference suitable for insertion into an array.
func NewArrayReference(id string) Reference {
	ref := NewReference(id)
	ref.Key = uuid.NewString()
	return ref
}
