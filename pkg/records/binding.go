package records

// FieldType describes how a bound value is rendered and edited.
type FieldType string

// Field types understood by the widget.
const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
	FieldTypeMoney  FieldType = "money"
	FieldTypeDate   FieldType = "date"
	FieldTypeEnum   FieldType = "enum"
	FieldTypeText   FieldType = "text"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeNumber, FieldTypeMoney, FieldTypeDate, FieldTypeEnum, FieldTypeText:
		return true
	}
	return false
}

// FieldSpec is the static configuration of one bound field.
type FieldSpec struct {
	ID       string    `json:"id" yaml:"id"`
	Code     string    `json:"code" yaml:"code"`
	Required bool      `json:"required" yaml:"required"`
	Type     FieldType `json:"type" yaml:"type"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
}

// Binding ties a widget field to a remote field code and tracks its edit
// state. CurrentValue changes on user edit; LastPersistedValue changes only
// after a successful autosave of that field.
type Binding struct {
	FieldID            string    `json:"field_id"`
	Code               string    `json:"code"`
	Required           bool      `json:"required"`
	Type               FieldType `json:"type"`
	CurrentValue       string    `json:"current_value"`
	LastPersistedValue string    `json:"last_persisted_value"`
}

// Bindings is the ordered collection of bindings of a session.
type Bindings []Binding

// NewBindings creates unseeded bindings from field specs, in order.
func NewBindings(specs []FieldSpec) Bindings {
	out := make(Bindings, 0, len(specs))
	for _, s := range specs {
		out = append(out, Binding{
			FieldID:  s.ID,
			Code:     s.Code,
			Required: s.Required,
			Type:     s.Type,
		})
	}
	return out
}

// Index returns the position of the binding with the given field id.
func (bs Bindings) Index(fieldID string) (int, bool) {
	for i := range bs {
		if bs[i].FieldID == fieldID {
			return i, true
		}
	}
	return -1, false
}

// Clone returns an independent copy.
func (bs Bindings) Clone() Bindings {
	out := make(Bindings, len(bs))
	copy(out, bs)
	return out
}

// Seed sets every binding's current and last persisted value from the record.
func (bs Bindings) Seed(r Record) {
	for i := range bs {
		v := r.Value(bs[i].Code)
		bs[i].CurrentValue = v
		bs[i].LastPersistedValue = v
	}
}
