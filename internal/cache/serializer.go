package cache

import (
	"encoding/json"
	"reflect"

	"github.com/jmcrae/fetchgate/internal/types"
)

// JSONSerializer serializes envelopes and payloads using encoding/json.
type JSONSerializer struct{}

// NewJSONSerializer creates a JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Marshal serializes a value to JSON.
func (s *JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON into dest, which must be a non-nil pointer.
func (s *JSONSerializer) Unmarshal(data []byte, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return types.ErrNilDest
	}
	return json.Unmarshal(data, dest)
}

var _ types.Serializer = (*JSONSerializer)(nil)
