package records

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentstation/recordsync/pkg/errors"
)

// Methods names the host bridge RPC methods a kind uses.
type Methods struct {
	Placement string `json:"placement" yaml:"placement"`
	Get       string `json:"get" yaml:"get"`
	Fields    string `json:"fields" yaml:"fields"`
	Update    string `json:"update" yaml:"update"`
	Workflow  string `json:"workflow" yaml:"workflow"`
}

// IdentitySources lists where the identity of a record is looked up, in
// priority order within each source.
type IdentitySources struct {
	OptionKeys      []string `json:"option_keys" yaml:"option_keys"`
	QueryParams     []string `json:"query_params" yaml:"query_params"`
	ReferrerPattern string   `json:"referrer_pattern" yaml:"referrer_pattern"`
}

// Workflow configures the downstream business process started on submit.
type Workflow struct {
	TemplateRef string            `json:"template_ref" yaml:"template_ref"`
	Parameters  map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Kind is the profile of one record kind: where its records live, how they
// are identified, which fields are bound and which workflow runs on submit.
type Kind struct {
	Name              string          `json:"name" yaml:"name"`
	Description       string          `json:"description,omitempty" yaml:"description,omitempty"`
	Module            string          `json:"module" yaml:"module"`
	EntityClass       string          `json:"entity_class" yaml:"entity_class"`
	InstanceKeyPrefix string          `json:"instance_key_prefix" yaml:"instance_key_prefix"`
	Methods           Methods         `json:"methods" yaml:"methods"`
	Identity          IdentitySources `json:"identity" yaml:"identity"`
	Fields            []FieldSpec     `json:"fields" yaml:"fields"`
	Workflow          Workflow        `json:"workflow" yaml:"workflow"`
}

// DocumentID returns the workflow document identifier for a record:
// module, entity class and instance key.
func (k *Kind) DocumentID(id Identity) [3]string {
	return [3]string{k.Module, k.EntityClass, k.InstanceKeyPrefix + id.String()}
}

// RequiredFields returns the ids of required fields in binding order.
func (k *Kind) RequiredFields() []string {
	var out []string
	for _, f := range k.Fields {
		if f.Required {
			out = append(out, f.ID)
		}
	}
	return out
}

// Field returns the FieldSpec for a field id.
func (k *Kind) Field(id string) (FieldSpec, bool) {
	for _, f := range k.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks that the profile is usable.
func (k *Kind) Validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return errors.NewValidationError("name", k.Name, "kind name is required")
	}
	if k.Methods.Get == "" || k.Methods.Update == "" || k.Methods.Workflow == "" {
		return errors.NewValidationError("methods", k.Methods, fmt.Sprintf("kind %s must name get, update and workflow methods", k.Name))
	}
	if k.Workflow.TemplateRef == "" {
		return errors.NewValidationError("workflow.template_ref", "", fmt.Sprintf("kind %s has no workflow template", k.Name))
	}
	if len(k.Fields) == 0 {
		return errors.NewValidationError("fields", nil, fmt.Sprintf("kind %s binds no fields", k.Name))
	}
	if k.Identity.ReferrerPattern != "" {
		if _, err := regexp.Compile(k.Identity.ReferrerPattern); err != nil {
			return errors.WrapValidation("identity.referrer_pattern", err)
		}
	}

	ids := make(map[string]bool, len(k.Fields))
	codes := make(map[string]bool, len(k.Fields))
	for _, f := range k.Fields {
		if f.ID == "" || f.Code == "" {
			return errors.NewValidationError("fields", f, "field id and code are required")
		}
		if ids[f.ID] {
			return errors.NewValidationError("fields", f.ID, "duplicate field id")
		}
		if codes[f.Code] {
			return errors.NewValidationError("fields", f.Code, "duplicate field code")
		}
		if f.Type != "" && !f.Type.Valid() {
			return errors.NewValidationError("fields", f.Type, fmt.Sprintf("unknown type for field %s", f.ID))
		}
		ids[f.ID] = true
		codes[f.Code] = true
	}
	return nil
}
