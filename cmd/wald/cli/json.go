package cli

import (
	"encoding/json"
	"os"
	"reflect"
)

// JSONOutput is an embeddable struct adding --json support to a
// command's flag set.
//
//	type listFlags struct {
//	    cli.JSONOutput
//	}
//
//	if done, err := out.EmitJSON(result); done {
//	    return err
//	}
type JSONOutput struct {
	Enabled bool
}

// EmitJSON writes result as indented JSON to stdout if --json was
// requested. Returns (true, nil) on success, (true, err) on write
// failure, or (false, nil) when the caller should fall back to text.
func (j *JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.Enabled {
		return false, nil
	}
	return true, WriteJSON(normalizeNilSlice(result))
}

// WriteJSON marshals value as indented JSON to stdout.
func WriteJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// normalizeNilSlice returns an empty slice of the same type if value
// is a nil slice, so JSON output is [] rather than null.
func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
