package estimator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

const systemPrompt = "You are a nutrition database. Answer with a single JSON object and nothing else."

// nutrientContract lists every tracked nutrient with the unit the model
// must use, straight from the nutrient table.
func nutrientContract() string {
	var b strings.Builder
	for _, info := range domain.Nutrients() {
		fmt.Fprintf(&b, "  %q: number in %s (%s)\n", string(info.ID), info.Unit, info.Label)
	}
	return b.String()
}

func textPrompt(query string) string {
	return fmt.Sprintf(`Estimate the nutrition of: %q.
Return a JSON object with:
  "name": string, a short food name
  "base_qty": number, the reference quantity the values are for
  "unit": "g", "ml" or "piece"
  "calories": number in kcal
  "protein": number in g
  "carbs": number in g
  "fat": number in g
%sUse 100 g or 100 ml as the reference unless the food is naturally counted in pieces.
Use 0 for nutrients you cannot estimate.`, query, nutrientContract())
}

func visionPrompt() string {
	return `Identify the food and estimate the portion size visible. Return a valid JSON object strictly with: "name" (string), "estimated_weight_g" (number), "calories" (number), "protein" (number), "carbs" (number), "fat" (number).
Optionally add these keys with the listed units:
` + nutrientContract() + `Values should be for the WHOLE portion visible.`
}

// stripFences removes markdown code fences a model may wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parsePayload decodes the first JSON object in a completion.
func parsePayload(content string) (domain.RawPayload, error) {
	s := stripFences(content)
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in completion", domain.ErrMalformedEstimate)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s[start : end+1])))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEstimate, err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty object", domain.ErrMalformedEstimate)
	}

	// Nutrients nested under one key are lifted to the top level.
	if nested, ok := payload["nutrients"].(map[string]any); ok {
		for k, v := range nested {
			if _, exists := payload[k]; !exists {
				payload[k] = v
			}
		}
	}
	return domain.RawPayload(payload), nil
}

func stringField(p domain.RawPayload, key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}

func numberField(p domain.RawPayload, key string) float64 {
	var v float64
	switch n := p[key].(type) {
	case json.Number:
		v, _ = n.Float64()
	case float64:
		v = n
	case string:
		v, _ = strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
