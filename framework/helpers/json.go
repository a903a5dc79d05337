package helpers

import (
	"encoding/json"
)

// AsJSON is a shortcut for calling json.Marshal and taking only the first result.
func AsJSON(value interface{}) []byte {
	ret, _ := json.Marshal(value)
	return ret
}
