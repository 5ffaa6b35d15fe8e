package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// wellKnownPaths lists where common fields that carry user-controlled values usually live
// in structured (OTel-style) log entries. When a selector names an "attribute" rather than
// an explicit path, these locations are tried in order.
var wellKnownPaths = map[string][]string{
	"process.command_line": {
		"process.command_line",
		"attributes.process\\.command_line",
		"resource.attributes.process\\.command_line",
	},
	"process.command_args": {
		"process.command_args",
		"attributes.process\\.command_args",
		"resource.attributes.process\\.command_args",
	},
	"file.name": {
		"file.name",
		"attributes.file\\.name",
		"file\\.name",
	},
	"file.path": {
		"file.path",
		"attributes.file\\.path",
		"file\\.path",
	},
	"http.url": {
		"http.url",
		"attributes.http\\.url",
		"http\\.url",
	},
	"http.target": {
		"http.target",
		"attributes.http\\.target",
		"http\\.target",
	},
	"user_agent.original": {
		"user_agent.original",
		"attributes.user_agent\\.original",
		"user_agent\\.original",
	},
}

// genericPaths are tried for any attribute not in wellKnownPaths.
var genericPaths = []string{
	"%s",                     // top-level as-is
	"attributes.%s",          // OTel log attributes
	"resource.attributes.%s", // OTel resource attributes
	"resourceAttributes.%s",  // flattened resource attributes
	"body.%s",                // inside body
}

// Selector picks the part of a JSON entry that should be guarded.
// Either Path ("args/0", "request/headers/x-file") or Attribute ("file.name") is set.
// The zero Selector selects the whole entry.
type Selector struct {
	path string // gjson path, converted from the user form
	attr string
}

// NewSelector validates the path/attribute pair.
func NewSelector(path, attribute string) (Selector, error) {
	if path != "" && attribute != "" {
		return Selector{}, errors.New("cannot specify both attribute and path")
	}
	var s Selector
	if path != "" {
		s.path = convertToGjsonPath(path)
	}
	s.attr = attribute
	return s, nil
}

// IsWholeEntry reports whether the selector guards the entire entry.
func (s Selector) IsWholeEntry() bool {
	return s.path == "" && s.attr == ""
}

// Select returns the raw bytes of the selected value. ok is false when the entry is not
// JSON or the field is missing. Strings are returned unquoted and unescaped; arrays and
// objects are returned as their raw JSON.
func (s Selector) Select(entry []byte) (value []byte, ok bool) {
	if s.IsWholeEntry() {
		return entry, true
	}
	if !gjson.ValidBytes(entry) {
		return nil, false
	}

	var res gjson.Result
	if s.path != "" {
		res = gjson.GetBytes(entry, s.path)
	} else {
		res = s.search(entry)
	}
	if !res.Exists() {
		return nil, false
	}
	if res.Type == gjson.String {
		return []byte(res.Str), true
	}
	return []byte(res.Raw), true
}

func (s Selector) search(entry []byte) gjson.Result {
	if paths, ok := wellKnownPaths[s.attr]; ok {
		for _, path := range paths {
			if res := gjson.GetBytes(entry, path); res.Exists() {
				return res
			}
		}
	}

	escaped := strings.ReplaceAll(s.attr, ".", "\\.")
	for _, tmpl := range genericPaths {
		if res := gjson.GetBytes(entry, fmt.Sprintf(tmpl, escaped)); res.Exists() {
			return res
		}
	}
	return gjson.Result{}
}

// convertToGjsonPath converts a user path (using /) to a gjson path.
// Example: "resource/attributes/file.name" -> "resource.attributes.file\.name"
func convertToGjsonPath(userPath string) string {
	parts := strings.Split(userPath, "/")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(part, ".", "\\.")
	}
	return strings.Join(parts, ".")
}
