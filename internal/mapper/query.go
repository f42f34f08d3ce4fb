package mapper

import (
	"time"

	"taskbridge/internal/domain"
)

// BuildFilter constructs the wire filter payload for a listing request.
// Returns nil when the query carries no filterable fields.
func BuildFilter(q domain.ListQuery, m Mapping) map[string]any {
	var filters []map[string]any

	if q.Status != "" {
		filters = append(filters, map[string]any{
			"property": m.wireName(FieldStatus),
			"status":   map[string]any{"equals": q.Status},
		})
	}
	if q.Priority != "" {
		filters = append(filters, map[string]any{
			"property": m.wireName(FieldPriority),
			"select":   map[string]any{"equals": q.Priority},
		})
	}
	if q.Assignee != "" {
		filters = append(filters, map[string]any{
			"property": m.wireName(FieldAssignee),
			"people":   map[string]any{"contains": q.Assignee},
		})
	}
	if q.DueAfter != nil || q.DueBefore != nil {
		date := map[string]any{}
		if q.DueAfter != nil {
			date["on_or_after"] = q.DueAfter.Format(time.RFC3339)
		}
		if q.DueBefore != nil {
			date["on_or_before"] = q.DueBefore.Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"property": m.wireName(FieldDueDate),
			"date":     date,
		})
	}
	if q.Project != "" {
		filters = append(filters, map[string]any{
			"property": m.wireName(FieldProject),
			"relation": map[string]any{"contains": q.Project},
		})
	}

	switch len(filters) {
	case 0:
		return nil
	case 1:
		return filters[0]
	default:
		conj := make([]any, len(filters))
		for i, f := range filters {
			conj[i] = f
		}
		return map[string]any{"and": conj}
	}
}

// BuildSorts maps the canonical sort request onto the wire sorts list.
// created_time and last_edited_time sort on the remote timestamp rather
// than a property.
func BuildSorts(q domain.ListQuery, m Mapping) []map[string]any {
	if q.SortBy == "" {
		return nil
	}
	direction := q.SortOrder
	if direction != "ascending" && direction != "descending" {
		direction = "ascending"
	}
	if q.SortBy == "created_time" || q.SortBy == "last_edited_time" {
		return []map[string]any{{"timestamp": q.SortBy, "direction": direction}}
	}
	return []map[string]any{{"property": m.wireName(q.SortBy), "direction": direction}}
}
