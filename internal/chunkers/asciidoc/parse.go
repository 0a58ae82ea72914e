package asciidoc

import (
	"regexp"
	"strconv"
	"strings"
)

// BlockType classifies a parsed block.
type BlockType int

// Block types.
const (
	Paragraph BlockType = iota
	Code
	Table
	List
)

func (t BlockType) String() string {
	switch t {
	case Paragraph:
		return "paragraph"
	case Code:
		return "code"
	case Table:
		return "table"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// Block is one content block with its enclosing section path.
type Block struct {
	Text        string
	Type        BlockType
	SectionPath string
}

var (
	sectionRe   = regexp.MustCompile(`^(={1,6})\s+(.+?)\s*$`)
	attrEntryRe = regexp.MustCompile(`^:!?[\w-]+!?:`)
	blockAttrRe = regexp.MustCompile(`^\[.*\]$`)
	blockTitle  = regexp.MustCompile(`^\.[^.\s]`)
	directiveRe = regexp.MustCompile(`^(include|image|ifdef|ifndef|ifeval|endif|toc|video|audio)::`)
	listItemRe  = regexp.MustCompile(`^\s*(\*+|-|\.+|\d+\.)\s+(.*)$`)
	colsRe      = regexp.MustCompile(`cols\s*=\s*"?([^",\]]*(?:,[^",\]]*)*)"?`)
)

// Parse converts AsciiDoc source into blocks. The document title (level 0)
// is not part of section paths.
//
//nolint:gocognit,gocyclo // line-oriented state machine
func Parse(src string) []Block {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	var (
		blocks   []Block
		sections []string // index i holds the title at level i+1
		para     []string
		listBuf  []string
		lastAttr string
	)

	path := func() string {
		var parts []string
		for _, s := range sections {
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ". ")
	}
	add := func(text string, typ BlockType) {
		if strings.TrimSpace(text) == "" {
			return
		}
		blocks = append(blocks, Block{Text: text, Type: typ, SectionPath: path()})
	}
	flushPara := func() {
		if len(para) == 0 {
			return
		}
		text := strings.TrimSpace(flattenInline(strings.Join(para, "\n")))
		if !strings.HasPrefix(text, "Unresolved directive in ") {
			add(text, Paragraph)
		}
		para = nil
	}
	flushList := func() {
		if len(listBuf) == 0 {
			return
		}
		var sb strings.Builder
		for _, item := range listBuf {
			sb.WriteString("- ")
			sb.WriteString(flattenInline(item))
			sb.WriteByte('\n')
		}
		add(strings.TrimSpace(sb.String()), List)
		listBuf = nil
	}
	flush := func() {
		flushPara()
		flushList()
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
			lastAttr = ""
			continue

		case strings.HasPrefix(trimmed, "////"):
			flush()
			i = skipUntil(lines, i, trimmed)
			continue

		case strings.HasPrefix(trimmed, "//"):
			continue

		case trimmed == "----" || trimmed == "....":
			flush()
			end := closing(lines, i, trimmed)
			code := strings.Join(lines[i+1:end], "\n")
			add("```\n"+code+"\n```", Code)
			i = end
			lastAttr = ""
			continue

		case trimmed == "++++":
			flush()
			i = skipUntil(lines, i, trimmed)
			continue

		case strings.HasPrefix(trimmed, "|==="):
			flush()
			end := closing(lines, i, trimmed)
			add(tableText(lines[i+1:end], lastAttr), Table)
			i = end
			lastAttr = ""
			continue

		case trimmed == "====" || trimmed == "****" || trimmed == "____" || trimmed == "--":
			// Example, sidebar, quote and open blocks: parse their content in place.
			flush()
			continue
		}

		if len(para) == 0 && len(listBuf) == 0 {
			if m := sectionRe.FindStringSubmatch(line); m != nil {
				level := len(m[1]) - 1
				if level == 0 {
					continue
				}
				if len(sections) > level-1 {
					sections = sections[:level-1]
				}
				for len(sections) < level-1 {
					sections = append(sections, "")
				}
				sections = append(sections, flattenInline(m[2]))
				lastAttr = ""
				continue
			}
			if attrEntryRe.MatchString(trimmed) || directiveRe.MatchString(trimmed) {
				continue
			}
			if blockAttrRe.MatchString(trimmed) {
				lastAttr = trimmed
				continue
			}
			if blockTitle.MatchString(trimmed) {
				continue
			}
		}

		if m := listItemRe.FindStringSubmatch(line); m != nil {
			flushPara()
			listBuf = append(listBuf, m[2])
			continue
		}
		if len(listBuf) > 0 {
			if trimmed == "+" {
				continue
			}
			listBuf[len(listBuf)-1] += " " + trimmed
			continue
		}

		para = append(para, hardBreakRe.ReplaceAllString(line, ""))
	}
	flush()
	return blocks
}

// closing returns the index of the line closing the delimited block opened at
// start, or the last line when the block is unterminated.
func closing(lines []string, start int, delim string) int {
	for j := start + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == delim {
			return j
		}
	}
	return len(lines)
}

func skipUntil(lines []string, start int, delim string) int {
	end := closing(lines, start, delim)
	if end >= len(lines) {
		return len(lines) - 1
	}
	return end
}

// tableText renders body rows as "a | b" lines. A first line holding a full
// row followed by a blank line is an implicit header and is dropped.
func tableText(lines []string, attrs string) string {
	cols := columnCount(attrs)

	var cells []string
	headerCells := 0
	seenFirst := false
	for idx, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || !strings.HasPrefix(line, "|") {
			if line != "" && len(cells) > 0 {
				cells[len(cells)-1] += " " + line
			}
			continue
		}
		rowCells := splitCells(line)
		if !seenFirst {
			seenFirst = true
			if cols == 0 {
				cols = len(rowCells)
			}
			if idx+1 < len(lines) && strings.TrimSpace(lines[idx+1]) == "" && len(rowCells) == cols {
				headerCells = len(rowCells)
			}
		}
		cells = append(cells, rowCells...)
	}
	if headerCells > 0 && !strings.Contains(attrs, "noheader") {
		cells = cells[headerCells:]
	}
	if cols <= 0 {
		cols = 1
	}

	var sb strings.Builder
	for i := 0; i < len(cells); i += cols {
		end := i + cols
		if end > len(cells) {
			end = len(cells)
		}
		row := make([]string, 0, cols)
		for _, c := range cells[i:end] {
			row = append(row, flattenInline(c))
		}
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts[1:] {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// columnCount reads the cols attribute: "3", "1,2,1" or "2*".
func columnCount(attrs string) int {
	m := colsRe.FindStringSubmatch(attrs)
	if m == nil {
		return 0
	}
	spec := strings.TrimSpace(m[1])
	if n, ok := strings.CutSuffix(spec, "*"); ok {
		if v, err := strconv.Atoi(n); err == nil {
			return v
		}
	}
	if v, err := strconv.Atoi(spec); err == nil && !strings.Contains(spec, ",") {
		return v
	}
	return len(strings.Split(spec, ","))
}
