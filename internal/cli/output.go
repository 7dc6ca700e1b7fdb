package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// render writes v as JSON or YAML, or calls text for the human format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(generic(v))
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic(v)); err != nil {
			return err
		}
		return enc.Close()
	}
	return text(w)
}

// generic converts v to plain maps and slices through its JSON form so both
// encoders use the API's field names.
func generic(v any) any {
	var data []byte
	switch t := v.(type) {
	case json.RawMessage:
		data = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		data = b
	}
	if len(data) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	b, err := json.MarshalIndent(generic(raw), "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(b)
}

func activeBadge(active bool) string {
	if active {
		return color.GreenString("active")
	}
	return color.YellowString("inactive")
}

func lockBadge(locked bool) string {
	if locked {
		return color.RedString("locked")
	}
	return color.GreenString("unlocked")
}

func success(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func parseAccountID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", arg)
	}
	return id, nil
}

// splitChats accepts ids as separate arguments, comma separated, or both.
func splitChats(args []string) []string {
	out := []string{}
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if item := strings.TrimSpace(part); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
