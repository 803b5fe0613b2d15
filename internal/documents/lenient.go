package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

const (
	strategyJSON   = "json"
	strategyRepair = "repair"
	strategyHJSON  = "hjson"
)

var errEmptyInput = errors.New("empty input")

// decodeLenient parses input into target trying strict JSON first, then
// json-repair, then hjson. It reports which strategy succeeded.
func decodeLenient(input string, target any) (string, error) {
	if len(bytes.TrimSpace([]byte(input))) == 0 {
		return "", errEmptyInput
	}
	if err := strictDecode([]byte(input), target); err == nil {
		return strategyJSON, nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := strictDecode([]byte(repaired), target); err == nil {
			return strategyRepair, nil
		}
	}

	var generic any
	if err := hjson.Unmarshal([]byte(input), &generic); err == nil {
		normalized, err := json.Marshal(generic)
		if err == nil {
			if err := strictDecode(normalized, target); err == nil {
				return strategyHJSON, nil
			}
		}
	}
	return "", fmt.Errorf("unparsable value")
}

func strictDecode(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(target)
}
