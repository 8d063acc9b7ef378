// Assistant content cleanup applied before the turn loop emits a
// `content` event, trimmed to artifacts that can appear regardless of
// which backend model served the turn: malformed tool-call XML some
// models emit as plain text, leaked <thinking> tags, duplicate
// paragraphs. There is no channel/bot delivery concept here, so
// multi-channel-bot-specific steps like MEDIA: path stripping, NO_REPLY
// token detection, or echoed [System Message] block removal don't apply.
package agent

import (
	"regexp"
	"strings"
)

// CleanAssistantText applies the cleanup chain to final assistant text
// before it is emitted as a `content` event.
func CleanAssistantText(content string) string {
	if content == "" {
		return content
	}
	content = stripGarbledToolXML(content)
	if content == "" {
		return ""
	}
	content = stripDowngradedToolCallText(content)
	content = stripThinkingTags(content)
	content = stripFinalTags(content)
	content = collapseConsecutiveDuplicateBlocks(content)
	content = stripLeadingBlankLines(content)
	return strings.TrimSpace(content)
}

var garbledToolXMLPattern = regexp.MustCompile(
	`(?s)</?(?:function_calls?|functioninvoke|invoke|invfunction_calls|tool_call|tool_use|parameter)[^>]*>`,
)

var garbledToolXMLIndicators = []string{
	"invfunction_calls", "functioninvoke", "<parameter name=", "</parameter",
	"<function_call", "<tool_call", "<tool_use",
}

// stripGarbledToolXML removes tool-call-shaped XML that a model emitted
// as plain text instead of a structured tool call. If the whole response
// turns out to be nothing but such artifacts, it is dropped entirely
// rather than shown to the user.
func stripGarbledToolXML(content string) string {
	lower := strings.ToLower(content)
	hasIndicator := false
	for _, ind := range garbledToolXMLIndicators {
		if strings.Contains(lower, strings.ToLower(ind)) {
			hasIndicator = true
			break
		}
	}
	if !hasIndicator {
		return content
	}
	cleaned := strings.TrimSpace(garbledToolXMLPattern.ReplaceAllString(content, ""))
	if cleaned == "" {
		return ""
	}
	return cleaned
}

// stripDowngradedToolCallText removes "[Tool Call: ...]"/"[Tool Result ...]"
// blocks that some models render as text when they can't emit a real
// tool-call message. Uses line scanning since Go's regexp lacks lookahead.
func stripDowngradedToolCallText(content string) string {
	if !strings.Contains(content, "[Tool Call:") && !strings.Contains(content, "[Tool Result") {
		return content
	}
	lines := strings.Split(content, "\n")
	var result []string
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[Tool Call:") || strings.HasPrefix(trimmed, "[Tool Result") {
			skipping = true
			continue
		}
		if skipping {
			if trimmed == "" || strings.HasPrefix(trimmed, "Arguments:") || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "}") {
				continue
			}
			skipping = false
		}
		result = append(result, line)
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}

var thinkingTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?is)<thought>.*?</thought>`),
}

// stripThinkingTags removes any reasoning tags that leaked into the final
// content instead of being routed to the `thinking` event.
func stripThinkingTags(content string) string {
	lower := strings.ToLower(content)
	if !strings.Contains(lower, "<think") && !strings.Contains(lower, "<thought") {
		return content
	}
	result := content
	for _, pat := range thinkingTagPatterns {
		result = pat.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

var finalTagPattern = regexp.MustCompile(`(?i)<\s*/?\s*final\s*>`)

// stripFinalTags removes <final>/</final> wrapper tags, keeping their
// contents.
func stripFinalTags(content string) string {
	if !strings.Contains(strings.ToLower(content), "final") {
		return content
	}
	return finalTagPattern.ReplaceAllString(content, "")
}

// collapseConsecutiveDuplicateBlocks removes a paragraph block that is an
// exact repeat of the one immediately before it — seen from models that
// stutter the same answer twice across a retried completion.
func collapseConsecutiveDuplicateBlocks(content string) string {
	blocks := strings.Split(content, "\n\n")
	if len(blocks) <= 1 {
		return content
	}
	var result []string
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		if len(result) > 0 && trimmed == strings.TrimSpace(result[len(result)-1]) {
			continue
		}
		result = append(result, block)
	}
	return strings.Join(result, "\n\n")
}

var leadingBlankLinesPattern = regexp.MustCompile(`^(?:[ \t]*\r?\n)+`)

func stripLeadingBlankLines(content string) string {
	return leadingBlankLinesPattern.ReplaceAllString(content, "")
}
