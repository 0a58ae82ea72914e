package asciidoc

import (
	"regexp"
	"strings"
)

var (
	// *strong* with word boundaries on both sides; **unconstrained** is left alone.
	strongRe = regexp.MustCompile(`(^|[^\w*])\*([^*\s](?:[^*]*[^*\s])?)\*($|[^\w*])`)
	emRe     = regexp.MustCompile(`(^|[^\w_])_([^_\s](?:[^_]*[^_\s])?)_($|[^\w_])`)

	// link:target[text], xref:target[text] and bare URLs with a label.
	macroLinkRe = regexp.MustCompile(`(?:link:|xref:|mailto:|https?://)[^\s\[\]]*\[([^\]]*)\]`)
	xrefTextRe  = regexp.MustCompile(`<<[^,>]+,\s*([^>]+)>>`)
	xrefBareRe  = regexp.MustCompile(`<<([^,>]+)>>`)
	hardBreakRe = regexp.MustCompile(`\s\+$`)
)

// flattenInline rewrites inline AsciiDoc markup to Markdown-like plain text.
// Backtick code spans are kept unchanged.
func flattenInline(s string) string {
	parts := splitCode(s)
	for i := range parts {
		if i%2 == 1 {
			continue
		}
		p := parts[i]
		p = macroLinkRe.ReplaceAllStringFunc(p, func(m string) string {
			sub := macroLinkRe.FindStringSubmatch(m)
			if sub[1] != "" {
				return sub[1]
			}
			return strings.TrimSuffix(m, "[]")
		})
		p = xrefTextRe.ReplaceAllString(p, "$1")
		p = xrefBareRe.ReplaceAllString(p, "$1")
		p = replaceRepeated(strongRe, p, "$1**$2**$3")
		p = replaceRepeated(emRe, p, "$1*$2*$3")
		parts[i] = p
	}
	return strings.Join(parts, "")
}

// splitCode splits s around backtick code spans. Odd indexes are code spans
// including their backticks.
func splitCode(s string) []string {
	var parts []string
	for {
		start := strings.IndexByte(s, '`')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '`')
		if end < 0 {
			break
		}
		end += start + 2
		parts = append(parts, s[:start], s[start:end])
		s = s[end:]
	}
	return append(parts, s)
}

// replaceRepeated applies re until the string stops changing, so adjacent
// matches that share a boundary character are all rewritten.
func replaceRepeated(re *regexp.Regexp, s, repl string) string {
	for i := 0; i < 4; i++ {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
	return s
}
