package data

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// substitutionSet maps a variable name to its value. In a data file, "<name>" inside a string is
// replaced with the value's text, and a string that is exactly "<name>" is replaced with the
// value's JSON representation, so that numbers and booleans keep their types.
type substitutionSet map[string]ldvalue.Value

func expandSubstitutions(originalData []byte) ([]SourceInfo, error) {
	var substs struct {
		Constants  substitutionSet   `json:"constants"`
		Parameters []json.RawMessage `json:"parameters"`
	}
	if err := ParseJSONOrYAML(originalData, &substs); err != nil {
		return nil, err
	}
	if len(substs.Constants) == 0 && len(substs.Parameters) == 0 {
		return []SourceInfo{{Data: originalData}}, nil
	}

	// Substitution works on JSON text, so YAML files are converted first.
	jsonData, err := toJSON(originalData)
	if err != nil {
		return nil, err
	}

	parameterSets, err := makeParameterPermutations(substs.Parameters)
	if err != nil {
		return nil, err
	}
	if len(parameterSets) == 0 {
		return []SourceInfo{{Data: replaceVariables(jsonData, substs.Constants)}}, nil
	}
	ret := make([]SourceInfo, 0, len(parameterSets))
	for _, paramsSet := range parameterSets {
		// constants may refer to parameters and vice versa, hence the second constants pass
		transformed := replaceVariables(jsonData, substs.Constants)
		transformed = replaceVariables(transformed, paramsSet)
		transformed = replaceVariables(transformed, substs.Constants)
		ret = append(ret, SourceInfo{Data: transformed, Params: paramsSet})
	}
	return ret, nil
}

// makeParameterPermutations accepts either a list of parameter sets, which are used as they are,
// or a list of lists of parameter sets, in which case every combination of one set from each list
// is produced.
func makeParameterPermutations(paramsData []json.RawMessage) ([]substitutionSet, error) {
	if len(paramsData) == 0 {
		return nil, nil
	}
	allData, _ := json.Marshal(paramsData)
	switch ldvalue.Parse(paramsData[0]).Type() {
	case ldvalue.ObjectType:
		var list []substitutionSet
		if err := json.Unmarshal(allData, &list); err != nil {
			return nil, err
		}
		return list, nil
	case ldvalue.ArrayType:
	default:
		return nil, errors.New("unable to parse parameters - must be an array of objects or an array of arrays")
	}

	var lists [][]substitutionSet
	if err := json.Unmarshal(allData, &lists); err != nil {
		return nil, err
	}
	for _, list := range lists {
		if len(list) == 0 {
			return nil, errors.New("unable to parse parameters - a parameter list was empty")
		}
	}
	indices := make([]int, len(lists))
	var result []substitutionSet
	for {
		mergedSet := make(substitutionSet)
		for i, list := range lists {
			for k, v := range list[indices[i]] {
				mergedSet[k] = v
			}
		}
		result = append(result, mergedSet)
		pos := 0
		for pos < len(lists) {
			indices[pos]++
			if indices[pos] < len(lists[pos]) {
				break
			}
			indices[pos] = 0
			pos++
		}
		if pos == len(lists) {
			return result, nil
		}
	}
}

func replaceVariables(originalData []byte, substs substitutionSet) []byte {
	str := string(originalData)
	str = strings.ReplaceAll(str, `\u003c`, "<")
	str = strings.ReplaceAll(str, `\u003e`, ">")
	for name, value := range substs {
		typedValueStr := value.JSONString()
		str = strings.ReplaceAll(str, `"<`+name+`>"`, typedValueStr)
		interpolatedValueStr := typedValueStr
		if value.IsString() {
			// the value lands inside an existing JSON string, so it needs the same escaping
			quoted := value.JSONString()
			interpolatedValueStr = quoted[1 : len(quoted)-1]
		}
		str = strings.ReplaceAll(str, "<"+name+">", interpolatedValueStr)
	}
	return []byte(str)
}
