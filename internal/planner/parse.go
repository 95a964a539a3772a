package planner

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/cexll/codeagent/internal/provider/shared"
)

// Tier records which parse strategy produced a plan.
type Tier string

const (
	TierStructured    Tier = "structured"     // the whole reply was a JSON object
	TierExtractedJSON Tier = "extracted_json" // a JSON object was cut out of surrounding prose
	TierHeuristic     Tier = "heuristic"      // keyword guess from the prompt
	TierEmpty         Tier = "empty"          // nothing usable
)

var (
	errNoJSON    = errors.New("no valid JSON found in response")
	errNotObject = errors.New("response is not a JSON object")
)

// Parse reads an LLM reply as a plan. It tries the trimmed reply as JSON,
// then the outermost brace-delimited span. Values under edit, create and
// delete that are not lists become empty; non-string items are dropped.
func Parse(reply string) (Plan, Tier, error) {
	text := strings.TrimSpace(reply)

	if plan, err := decode(text); err == nil {
		return plan, TierStructured, nil
	} else if errors.Is(err, errNotObject) {
		return Plan{}, TierEmpty, err
	}

	span, ok := shared.ExtractJSONObject(text)
	if !ok {
		return Plan{}, TierEmpty, errNoJSON
	}
	plan, err := decode(span)
	if err != nil {
		return Plan{}, TierEmpty, err
	}
	return plan, TierExtractedJSON, nil
}

func decode(text string) (Plan, error) {
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Plan{}, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Plan{}, errNotObject
	}
	return Plan{
		Edit:   stringList(obj["edit"]),
		Create: stringList(obj["create"]),
		Delete: stringList(obj["delete"]),
	}, nil
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Heuristic guesses a plan from prompt keywords when the LLM gave nothing
// usable. It is a last resort, not a substitute for planning: "readme" or
// "documentation" edits README.md, otherwise "test" creates
// test_new_feature.py, otherwise "config" edits config.py and settings.py.
func Heuristic(prompt string) (Plan, Tier) {
	lower := strings.ToLower(prompt)
	plan := Plan{Edit: []string{}, Create: []string{}, Delete: []string{}}

	switch {
	case strings.Contains(lower, "readme") || strings.Contains(lower, "documentation"):
		plan.Edit = []string{"README.md"}
	case strings.Contains(lower, "test"):
		plan.Create = []string{"test_new_feature.py"}
	case strings.Contains(lower, "config"):
		plan.Edit = []string{"config.py", "settings.py"}
	default:
		return plan, TierEmpty
	}
	return plan, TierHeuristic
}
