// Package mapper translates between canonical task fields and the remote
// wire property format, honoring per-workspace field naming.
package mapper

import (
	"fmt"
	"strings"
	"time"

	"taskbridge/internal/domain"
	"taskbridge/internal/ports"
)

// Canonical field names understood by the mapper.
const (
	FieldTitle    = "title"
	FieldDueDate  = "due_date"
	FieldPriority = "priority"
	FieldAssignee = "assignee"
	FieldStatus   = "status"
	FieldProject  = "project"
)

func defaultMapping() map[string]string {
	return map[string]string{
		FieldTitle:    "Name",
		FieldDueDate:  "Due Date",
		FieldPriority: "Priority",
		FieldAssignee: "Assignee",
		FieldStatus:   "Status",
		FieldProject:  "Project",
	}
}

// Mapping resolves canonical field names to wire property names.
type Mapping map[string]string

// Resolve merges the built-in default mapping with per-workspace overrides.
// Overrides win key-by-key; unspecified keys keep the default name.
func Resolve(overrides map[string]string) Mapping {
	m := defaultMapping()
	for k, v := range overrides {
		if k == "" || v == "" {
			continue
		}
		m[k] = v
	}
	return m
}

func (m Mapping) wireName(canonical string) string {
	if name, ok := m[canonical]; ok {
		return name
	}
	return canonical
}

// Mapper encodes canonical fields into wire properties and decodes remote
// pages back into canonical records.
type Mapper struct {
	allowedPriorities []string
}

func New(allowedPriorities []string) *Mapper {
	return &Mapper{allowedPriorities: allowedPriorities}
}

// Encode builds the wire property payload for a create or partial update.
// Absent fields are omitted. A cleared field emits the wire empty value for
// its property type. Raw Extra properties are merged last and win on key
// collision.
func (mp *Mapper) Encode(f domain.TaskFields, m Mapping) (map[string]any, error) {
	props := map[string]any{}

	if f.Title.Set {
		if f.Title.Clear {
			props[m.wireName(FieldTitle)] = map[string]any{"title": []any{}}
		} else {
			props[m.wireName(FieldTitle)] = map[string]any{
				"title": []any{
					map[string]any{"text": map[string]any{"content": f.Title.Value}},
				},
			}
		}
	}

	if f.Status.Set {
		if f.Status.Clear {
			props[m.wireName(FieldStatus)] = map[string]any{"status": nil}
		} else {
			props[m.wireName(FieldStatus)] = map[string]any{
				"status": map[string]any{"name": f.Status.Value},
			}
		}
	}

	if f.Priority.Set {
		if f.Priority.Clear {
			props[m.wireName(FieldPriority)] = map[string]any{"select": nil}
		} else {
			if err := mp.validatePriority(f.Priority.Value); err != nil {
				return nil, err
			}
			props[m.wireName(FieldPriority)] = map[string]any{
				"select": map[string]any{"name": f.Priority.Value},
			}
		}
	}

	if f.DueDate.Set {
		if f.DueDate.Clear {
			props[m.wireName(FieldDueDate)] = map[string]any{"date": nil}
		} else {
			props[m.wireName(FieldDueDate)] = map[string]any{
				"date": map[string]any{"start": f.DueDate.Value.Format(time.RFC3339)},
			}
		}
	}

	if f.Assignee.Set {
		if f.Assignee.Clear {
			props[m.wireName(FieldAssignee)] = map[string]any{"people": []any{}}
		} else {
			props[m.wireName(FieldAssignee)] = map[string]any{
				"people": []any{map[string]any{"id": f.Assignee.Value}},
			}
		}
	}

	if f.Project.Set {
		if f.Project.Clear {
			props[m.wireName(FieldProject)] = map[string]any{"relation": []any{}}
		} else {
			props[m.wireName(FieldProject)] = map[string]any{
				"relation": []any{map[string]any{"id": f.Project.Value}},
			}
		}
	}

	for k, v := range f.Extra {
		props[k] = v
	}
	return props, nil
}

func (mp *Mapper) validatePriority(v string) error {
	if len(mp.allowedPriorities) == 0 {
		return nil
	}
	for _, allowed := range mp.allowedPriorities {
		if v == allowed {
			return nil
		}
	}
	return domain.NewValidation(
		fmt.Sprintf("priority %q is not allowed (allowed: %s)", v, strings.Join(mp.allowedPriorities, ", ")),
		FieldPriority,
	)
}

// Decode converts a raw remote page into a canonical record. Wire
// properties not covered by the mapping are preserved in Extra so a
// partially understood record survives a round trip.
func (mp *Mapper) Decode(p ports.Page, m Mapping) domain.TaskRecord {
	rec := domain.TaskRecord{
		RemoteID:  p.ID,
		URL:       p.URL,
		CreatedAt: p.CreatedTime,
		UpdatedAt: p.LastEditedTime,
	}

	known := map[string]string{}
	for _, canonical := range []string{FieldTitle, FieldDueDate, FieldPriority, FieldAssignee, FieldStatus, FieldProject} {
		known[m.wireName(canonical)] = canonical
	}

	for name, raw := range p.Properties {
		payload, _ := raw.(map[string]any)
		switch known[name] {
		case FieldTitle:
			rec.Title = extractTitle(payload)
		case FieldStatus:
			rec.Status = extractStatusOrSelect(payload)
		case FieldPriority:
			rec.Priority = extractSelect(payload)
		case FieldDueDate:
			rec.DueDate = extractDate(payload)
		case FieldAssignee:
			rec.Assignees = extractPeople(payload)
		case FieldProject:
			// relations carry only opaque ids, keep them in Extra
			fallthrough
		default:
			if rec.Extra == nil {
				rec.Extra = map[string]any{}
			}
			rec.Extra[name] = raw
		}
	}

	if rec.Title == "" {
		rec.Title = "Untitled"
	}
	return rec
}

func extractTitle(payload map[string]any) string {
	items, _ := payload["title"].([]any)
	if len(items) == 0 {
		return ""
	}
	first, _ := items[0].(map[string]any)
	if s, ok := first["plain_text"].(string); ok && s != "" {
		return s
	}
	if text, ok := first["text"].(map[string]any); ok {
		if s, ok := text["content"].(string); ok {
			return s
		}
	}
	return ""
}

func extractStatusOrSelect(payload map[string]any) string {
	if status, ok := payload["status"].(map[string]any); ok {
		if s, ok := status["name"].(string); ok {
			return s
		}
	}
	return extractSelect(payload)
}

func extractSelect(payload map[string]any) string {
	if sel, ok := payload["select"].(map[string]any); ok {
		if s, ok := sel["name"].(string); ok {
			return s
		}
	}
	return ""
}

func extractDate(payload map[string]any) *time.Time {
	date, ok := payload["date"].(map[string]any)
	if !ok {
		return nil
	}
	start, ok := date["start"].(string)
	if !ok || start == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, start); err == nil {
			return &t
		}
	}
	return nil
}

func extractPeople(payload map[string]any) []string {
	people, _ := payload["people"].([]any)
	var out []string
	for _, raw := range people {
		person, _ := raw.(map[string]any)
		if name, ok := person["name"].(string); ok && name != "" {
			out = append(out, name)
			continue
		}
		if id, ok := person["id"].(string); ok && id != "" {
			out = append(out, id)
		}
	}
	return out
}
