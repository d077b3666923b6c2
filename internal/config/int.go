package config

import (
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// Int is a lenient integer field: numbers and numeric strings are
// accepted, anything else decodes as 0 instead of failing the whole file.
type Int int

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Int) UnmarshalYAML(value *yaml.Node) error {
	*i = 0
	if value.Kind != yaml.ScalarNode {
		return nil
	}
	*i = parseLoose(value.Value)
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (i *Int) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case int64:
		*i = Int(v)
	case float64:
		*i = Int(math.Trunc(v))
	case string:
		*i = parseLoose(v)
	default:
		*i = 0
	}
	return nil
}

func parseLoose(s string) Int {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Int(math.Trunc(f))
	}
	n, _ := countdown.ParseSeconds(s)
	return Int(n)
}
