package codex

import (
	"encoding/json"
	"strings"
)

// collapsed is the distilled view of one Codex JSONL event stream.
type collapsed struct {
	text    string // last agent message text
	tokens  int    // summed token usage across turns
	failure string // first turn.failed / error message, if any
}

// collapseOutput reduces Codex's JSONL event stream to the final agent
// message plus token usage. Codex wraps its answer in per-event JSON
// lines instead of a single result envelope, so the engine flattens
// the stream before the payload parser sees it.
func collapseOutput(output string) collapsed {
	var c collapsed

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}

		eventType, _ := raw["type"].(string)
		switch eventType {
		case "item.completed":
			item, ok := raw["item"].(map[string]interface{})
			if !ok {
				continue
			}
			if itemType, _ := item["type"].(string); itemType == "agent_message" {
				if text, _ := item["text"].(string); text != "" {
					c.text = text
				}
			}
		case "turn.completed":
			if usage, ok := raw["usage"].(map[string]interface{}); ok {
				if in, ok := usage["input_tokens"].(float64); ok {
					c.tokens += int(in)
				}
				if out, ok := usage["output_tokens"].(float64); ok {
					c.tokens += int(out)
				}
				if cached, ok := usage["cached_input_tokens"].(float64); ok {
					c.tokens += int(cached)
				}
			}
		case "turn.failed", "error":
			if c.failure == "" {
				c.failure = failureMessage(raw)
			}
		}
	}

	return c
}

func failureMessage(raw map[string]interface{}) string {
	if msg, ok := raw["message"].(string); ok && msg != "" {
		return msg
	}

	errVal, ok := raw["error"]
	if !ok || errVal == nil {
		return "codex reported failure"
	}

	switch v := errVal.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := v["type"].(string); ok && msg != "" {
			return msg
		}
	}

	return "codex reported failure"
}
