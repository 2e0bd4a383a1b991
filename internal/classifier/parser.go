package classifier

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/leadpulse/internal/model"
)

// Defaults substituted for fields the model omitted or mangled.
const (
	defaultReason  = "No reason provided"
	defaultReply   = "Thank you for your comment!"
	fallbackReason = "Unable to classify"
)

// rawClassification mirrors the schema the prompt asks for; every field is
// optional because the model is not contractually guaranteed to honor it.
type rawClassification struct {
	ID         string `json:"id"`
	LeadType   string `json:"leadType"`
	LeadReason string `json:"leadReason"`
	Reply      string `json:"reply"`
}

// ParseResponse extracts a classification array from raw model output. The
// text may be fenced in markdown, surrounded by commentary, or truncated
// mid-generation (truncated=true when the model stopped on its token cap).
// Returns a *ParseError when no well-formed array can be recovered.
func ParseResponse(raw string, truncated bool) ([]model.ClassificationResult, error) {
	text := stripFences(strings.TrimSpace(raw))

	// Truncated output is salvaged by closing unbalanced delimiters; output
	// cut mid-string is beyond repair and fails strict parsing below.
	if truncated {
		text = repairTruncatedJSON(text)
	}

	// Keep only the first [...] span, discarding any prose the model added
	// around the payload.
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var items []rawClassification
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, &ParseError{Excerpt: excerpt(raw), Err: err}
	}

	results := make([]model.ClassificationResult, 0, len(items))
	for _, item := range items {
		results = append(results, coerce(item))
	}
	return results, nil
}

// coerce fills defaults for any field the model omitted and normalizes
// unrecognized lead grades to cold.
func coerce(item rawClassification) model.ClassificationResult {
	leadType := model.LeadType(item.LeadType)
	if !leadType.Valid() {
		leadType = model.LeadCold
	}
	reason := item.LeadReason
	if reason == "" {
		reason = defaultReason
	}
	reply := item.Reply
	if reply == "" {
		reply = defaultReply
	}
	return model.ClassificationResult{
		ID:         item.ID,
		LeadType:   leadType,
		LeadReason: reason,
		Reply:      reply,
	}
}

// stripFences removes a leading ```json / ``` fence pair if present.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated
// JSON, tracking string literals so delimiters inside strings are ignored.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}

		if c == '\\' && inString {
			escape = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// Close unclosed delimiters in reverse order, trimming trailing commas.
	for i := len(stack) - 1; i >= 0; i-- {
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}

	return text
}

func excerpt(raw string) string {
	if len(raw) > parseExcerptLen {
		return raw[:parseExcerptLen]
	}
	return raw
}
