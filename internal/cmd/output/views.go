package output

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/records"
)

// KindsTable lists record kinds one per row.
func KindsTable(list []*records.Kind) Data {
	data := Data{
		Headers:   []string{"Name", "Module", "Entity", "Fields", "Workflow"},
		Alignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, k := range list {
		data.Rows = append(data.Rows, []string{
			k.Name,
			k.Module,
			k.EntityClass,
			strconv.Itoa(len(k.Fields)),
			k.Workflow.TemplateRef,
		})
	}
	return data
}

// BindingsTable lists the field bindings of a kind.
func BindingsTable(k *records.Kind) Data {
	data := Data{Headers: []string{"Field", "Code", "Type", "Required", "Label"}}
	for _, f := range k.Fields {
		data.Rows = append(data.Rows, []string{
			f.ID, f.Code, string(f.Type), strconv.FormatBool(f.Required), f.Label,
		})
	}
	return data
}

// ResolutionTable shows the winning identity source.
func ResolutionTable(r identity.Result) Data {
	id := string(r.Identity)
	if id == "" {
		id = "-"
	}
	return Data{
		Headers: []string{"Identity", "Source", "Key", "Manual Input"},
		Rows: [][]string{{
			id, r.Source.String(), r.Key, strconv.FormatBool(r.NeedsManualInput()),
		}},
	}
}

// SnapshotTable summarizes a session as property rows, one per binding,
// then one per note.
func SnapshotTable(s recordsync.Snapshot) Data {
	data := Data{Headers: []string{"Property", "Value"}}
	add := func(k, v string) { data.Rows = append(data.Rows, []string{k, v}) }

	add("Session", s.ID)
	add("Kind", s.Kind)
	add("State", s.State.String())
	if s.GateOutcome != "" {
		add("Gate", s.GateOutcome)
	}
	add("Identity", string(s.Identity))
	add("Source", s.Source.String())
	add("Valid", strconv.FormatBool(s.Valid))
	if len(s.Invalid) > 0 {
		add("Missing", strings.Join(s.Invalid, ", "))
	}
	if s.Status != nil {
		add("Status", s.Status.Error())
	}

	dirty := make(map[string]bool, len(s.Dirty.Changes))
	for _, c := range s.Dirty.Changes {
		dirty[c.FieldID] = true
	}
	for _, b := range s.Bindings {
		v := b.CurrentValue
		if dirty[b.FieldID] {
			v += " *"
		}
		add(b.FieldID, v)
	}

	fields := make([]string, 0, len(s.Notes))
	for f := range s.Notes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		add("Note "+f, s.Notes[f].Message)
	}

	for _, inv := range s.Invocations {
		v := string(inv.Outcome)
		if inv.InvocationID != "" {
			v += " " + inv.InvocationID
		}
		if inv.Error != "" {
			v += ": " + inv.Error
		}
		add("Workflow", v)
	}
	return data
}
