package config

import (
	"encoding/json"
	"fmt"
)

// Port is a proxy port that may be written as a string or as a number
type Port string

func (p *Port) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return p.set(v)
}

func (p *Port) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	return p.set(v)
}

func (p *Port) set(v interface{}) error {
	switch value := v.(type) {
	case nil:
		*p = ""
	case string:
		*p = Port(value)
	case float64:
		*p = Port(fmt.Sprintf("%.0f", value))
	case int, int64, uint64:
		*p = Port(fmt.Sprint(value))
	default:
		return fmt.Errorf("proxy port must be a string or a number, got %T", v)
	}
	return nil
}
