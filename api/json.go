package api

import (
	"reflect"
	"strings"
)

// knownJSONKeys returns the set of JSON keys produced by v's struct tags.
// Fields tagged "-" are excluded.
func knownJSONKeys(v any) map[string]struct{} {
	keys := make(map[string]struct{})
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		keys[name] = struct{}{}
	}
	return keys
}
