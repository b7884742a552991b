// Package configbinder binds the string properties of a work (works.<name>.properties) to its settings struct.
package configbinder

import (
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

const moduleName = "configbinder"

// BindProperties decodes props into target, a pointer to a struct with `yaml` tags.
// Values are weakly typed ("3" binds to an int, "true" to a bool). A property that matches no field is
// a config error, so typos in YAML do not silently fall back to defaults.
func BindProperties(props map[string]string, target interface{}) error {
	if len(props) == 0 {
		return nil
	}
	input := make(map[string]interface{}, len(props))
	for k, v := range props {
		input[k] = v
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		Metadata:         &md,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return exception.NewWorklistError(exception.KindConfig, moduleName, "cannot build property decoder", err)
	}
	if err := decoder.Decode(input); err != nil {
		return exception.NewWorklistErrorf(exception.KindConfig, moduleName, "cannot bind properties to %s", targetName(target), err)
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return exception.NewWorklistErrorf(exception.KindConfig, moduleName, "unknown properties for %s: %v", targetName(target), md.Unused)
	}
	return nil
}

func targetName(target interface{}) string {
	t := reflect.TypeOf(target)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
