package export

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// argValueMax caps a single rendered argument value so tool-call
// lines stay scannable.
const argValueMax = 120

// compactArgs renders a tool call's input for the ⏺ Name(...)
// line. A single short string argument renders bare; otherwise
// arguments render as k=v pairs, quoting string values that
// contain spaces or separators and JSON-encoding non-strings.
func compactArgs(input gjson.Result) string {
	if !input.Exists() {
		return ""
	}
	if input.Type == gjson.String {
		return collapse(input.Str, argValueMax)
	}
	if !input.IsObject() {
		return collapse(input.Raw, argValueMax)
	}

	type arg struct{ key, val string }
	var args []arg
	single := ""
	n := 0
	input.ForEach(func(key, value gjson.Result) bool {
		n++
		if value.Type == gjson.String {
			single = value.Str
		}
		args = append(args, arg{key.Str, argValue(value)})
		return true
	})
	if n == 0 {
		return ""
	}
	if n == 1 && single != "" && len(single) <= argValueMax &&
		!strings.ContainsAny(single, "\n") {
		return collapse(single, argValueMax)
	}

	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.key+"="+a.val)
	}
	return strings.Join(parts, ", ")
}

func argValue(value gjson.Result) string {
	if value.Type != gjson.String {
		return collapse(value.Raw, argValueMax)
	}
	v := collapse(value.Str, argValueMax)
	if strings.ContainsAny(v, " ,=()\"") {
		return strconv.Quote(v)
	}
	return v
}
