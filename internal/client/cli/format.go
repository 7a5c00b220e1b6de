package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iudanet/repsync/internal/models"
)

// parseFields разбирает аргументы вида field=value.
// Значение читается как JSON, иначе как строка; пустое значение удаляет поле.
func parseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", arg)
		}
		if raw == "" {
			fields[name] = nil
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[name] = value
	}
	return fields, nil
}

// mergePayload накладывает поля из аргументов на JSON из --data
func mergePayload(data string, args []string) (map[string]any, error) {
	payload := make(map[string]any)
	if data != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
	}

	fields, err := parseFields(args)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		payload[k] = v
	}
	return payload, nil
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		value, err := json.Marshal(fields[name])
		if err != nil {
			value = []byte(fmt.Sprintf("%v", fields[name]))
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, value))
	}
	return strings.Join(parts, " ")
}

func formatEntity(e *models.Entity) string {
	return fmt.Sprintf("%s v%d %s", e.Key(), e.Version, formatFields(e.Fields))
}

func formatMutation(m *models.Mutation) string {
	line := fmt.Sprintf("%s #%d %s %s base=v%d %s",
		m.ID, m.Seq, m.Operation, m.Key(), m.BaseVersion, m.Status)
	if m.RetryCount > 0 {
		line += fmt.Sprintf(" retries=%d", m.RetryCount)
	}
	if m.Exhausted {
		line += " exhausted"
	} else if m.Status == models.StatusFailed && !m.NextRetryAt.IsZero() {
		line += " next=" + m.NextRetryAt.Format(time.RFC3339)
	}
	if m.LastError != "" {
		line += fmt.Sprintf(" error=%q", m.LastError)
	}
	return line
}

func formatConflict(c *models.ConflictRecord) string {
	line := fmt.Sprintf("%s %s %s base=v%d remote=v%d %s",
		c.ID, c.Operation, c.Key(), c.BaseVersion, c.RemoteVersion, c.Resolution)
	if len(c.ChangedFields) > 0 {
		line += " changed=" + strings.Join(c.ChangedFields, ",")
	}
	if c.RemoteDeleted {
		line += " remote-deleted"
	}
	return line
}
