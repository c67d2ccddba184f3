// Package output renders API records as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the supported output formats
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

// ValidateFormat returns an error for unknown formats
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (expected one of: %s)", format, strings.Join(Formats, ", "))
}

// PrintList writes rows in the given format. Table output shows only columns;
// when columns is empty every key of the first row is used.
func PrintList(w io.Writer, format string, columns []string, rows []map[string]any) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatYAML:
		return writeYAML(w, rows)
	case FormatTable, "":
		if len(columns) == 0 && len(rows) > 0 {
			columns = sortedKeys(rows[0])
		}
		return writeTable(w, columns, rows)
	default:
		return ValidateFormat(format)
	}
}

// PrintOne writes a single object. Table output is a KEY/VALUE listing.
func PrintOne(w io.Writer, format string, row map[string]any) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, row)
	case FormatYAML:
		return writeYAML(w, row)
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, key := range sortedKeys(row) {
			fmt.Fprintf(tw, "%s\t%s\n", strings.ToUpper(key), Cell(row[key]))
		}
		return tw.Flush()
	default:
		return ValidateFormat(format)
	}
}

func writeTable(w io.Writer, columns []string, rows []map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, len(columns))
	rules := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col)
		rules[i] = strings.Repeat("─", len(col))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	fmt.Fprintln(tw, strings.Join(rules, "\t"))

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = Cell(row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// Cell formats a single value for table output
func Cell(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		if val == "" {
			return "-"
		}
		return val
	case float64:
		// JSON numbers decode as float64; print integers without a fraction
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
