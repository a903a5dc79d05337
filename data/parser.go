package data

import (
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// ParseJSONOrYAML decodes a data file into target, whose fields only need json tags. Data that is
// not valid JSON is read as YAML and converted, so route files can use anchors, merge keys, and
// block strings for inline HTML.
func ParseJSONOrYAML(data []byte, target interface{}) error {
	jsonData, err := toJSON(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

// toJSON returns JSON data unchanged, and converts anything else from YAML to JSON.
func toJSON(data []byte) ([]byte, error) {
	if json.Valid(data) {
		return data, nil
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("data is neither valid JSON nor valid YAML: %w", err)
	}
	doc, err := withStringKeys(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// withStringKeys rewrites maps that YAML decoded with non-string keys, such as a status code
// used as a key, into maps that encoding/json can write. Scalar keys become their text form.
func withStringKeys(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		for i, item := range v {
			converted, err := withStringKeys(item)
			if err != nil {
				return nil, err
			}
			v[i] = converted
		}
		return v, nil
	case map[string]interface{}:
		for key, item := range v {
			converted, err := withStringKeys(item)
			if err != nil {
				return nil, err
			}
			v[key] = converted
		}
		return v, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			switch key.(type) {
			case string, int, int64, uint64, float64, bool:
			default:
				return nil, fmt.Errorf("YAML map key of type %T cannot be used in a data file", key)
			}
			converted, err := withStringKeys(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = converted
		}
		return out, nil
	default:
		return value, nil
	}
}
