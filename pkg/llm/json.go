package llm

import "strings"

// ExtractJSON pulls a JSON payload out of raw LLM text: prefer a fenced
// ```json``` block, else the outermost bracketed slice (array for the
// planner, object for the evaluator), else the trimmed response as-is.
func ExtractJSON(raw string, open, close byte) string {
	if fenced, ok := fencedJSONBlock(raw); ok {
		return fenced
	}
	if sliced, ok := outermostSlice(raw, open, close); ok {
		return sliced
	}
	return strings.TrimSpace(raw)
}

// fencedJSONBlock returns the contents of a ```json ... ``` fenced block,
// if present.
func fencedJSONBlock(raw string) (string, bool) {
	const fence = "```"
	start := strings.Index(raw, fence+"json")
	offset := len(fence) + 4
	if start == -1 {
		start = strings.Index(raw, fence)
		offset = len(fence)
		if start == -1 {
			return "", false
		}
	}
	rest := raw[start+offset:]
	end := strings.Index(rest, fence)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// outermostSlice returns the substring from the first occurrence of open to
// the last occurrence of close, inclusive.
func outermostSlice(raw string, open, close byte) (string, bool) {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}
