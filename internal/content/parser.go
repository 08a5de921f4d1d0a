// Package content splits lesson text into sections and inline questions.
//
// The recognized markers are line-oriented:
//
//	# Heading                 section boundary (1 to 6 '#' followed by a space)
//	::: question [type]       opens a question block (type defaults to multiple-choice)
//	- option                  option line inside a block
//	- option (correct)        the correct option of a closed question
//	> explanation             explanation line inside a block
//	:::                       closes the block
//
// A block also ends at the next heading, the next question opener or the end of the
// document. Lines inside ``` or ~~~ fences never match a marker: a fence in prose is
// prose, a fence inside a question block is part of the question text.
package content

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/victornm/learn/internal/domain"
)

const (
	blockMarker   = ":::"
	questionWord  = "question"
	correctSuffix = "(correct)"
	maxHeading    = 6
)

// Result is the outcome of parsing one lesson body.
type Result struct {
	Sections       []domain.Section        `json:"sections"`
	Questions      []domain.InlineQuestion `json:"questions"`
	DisplayContent string                  `json:"displayContent"`
	// Skipped lists malformed question blocks that were dropped from both Questions and
	// DisplayContent.
	Skipped []Skipped `json:"-"`
}

// Skipped describes a malformed question block.
type Skipped struct {
	Ordinal int
	Line    int
	Reason  string
}

// SectionID returns the ID of the section at ordinal.
func SectionID(ordinal int) string {
	return fmt.Sprintf("section-%d", ordinal)
}

// QuestionID returns the ID of the question block at ordinal. Ordinals count every
// question block, including skipped ones, so IDs only depend on block position.
func QuestionID(ordinal int) string {
	return fmt.Sprintf("question-%d", ordinal)
}

// Parse never fails. Unrecognized markers stay in the display content as prose and a
// malformed question block is skipped.
func Parse(content string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("content: parse panic, falling back to plain text",
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
			res = Result{
				Sections:       []domain.Section{},
				Questions:      []domain.InlineQuestion{},
				DisplayContent: content,
			}
		}
	}()

	p := newParser()
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		// The empty tail after a final newline always belongs to the document.
		if i == len(lines)-1 && line == "" && i > 0 {
			p.finishBlock()
			p.keep(line)
			continue
		}
		p.scan(i+1, line)
	}
	p.finishBlock()

	return Result{
		Sections:       p.sections,
		Questions:      p.questions,
		DisplayContent: strings.Join(p.display, "\n"),
		Skipped:        p.skipped,
	}
}

type state int

const (
	stateProse state = iota
	stateFence
	stateQuestion
)

type parser struct {
	state state
	fence string

	block   *block
	blocks  int
	display []string

	sections  []domain.Section
	questions []domain.InlineQuestion
	skipped   []Skipped
}

func newParser() *parser {
	return &parser{
		sections:  []domain.Section{},
		questions: []domain.InlineQuestion{},
	}
}

func (p *parser) keep(line string) {
	p.display = append(p.display, line)
}

func (p *parser) scan(n int, raw string) {
	line := strings.TrimSpace(raw)

	switch p.state {
	case stateFence:
		p.keep(raw)
		if strings.HasPrefix(line, p.fence) {
			p.state = stateProse
		}

	case stateQuestion:
		if p.block.fence != "" {
			p.block.addCode(raw)
			if strings.HasPrefix(line, p.block.fence) {
				p.block.fence = ""
			}
			return
		}

		if f := fenceMarker(line); f != "" {
			p.block.fence = f
			p.block.addCode(raw)
			return
		}

		if line == blockMarker {
			p.finishBlock()
			return
		}

		if typ, ok := questionOpener(line); ok {
			p.finishBlock()
			p.openBlock(n, typ)
			return
		}

		if _, _, ok := heading(line); ok {
			p.finishBlock()
			p.scanProse(n, raw, line)
			return
		}

		p.block.add(line)

	default:
		p.scanProse(n, raw, line)
	}
}

func (p *parser) scanProse(n int, raw, line string) {
	if typ, ok := questionOpener(line); ok {
		p.openBlock(n, typ)
		return
	}

	p.keep(raw)

	if f := fenceMarker(line); f != "" {
		p.state, p.fence = stateFence, f
		return
	}

	if level, title, ok := heading(line); ok {
		ordinal := len(p.sections)
		p.sections = append(p.sections, domain.Section{
			ID:      SectionID(ordinal),
			Title:   title,
			Ordinal: ordinal,
			Level:   level,
		})
	}
}

func (p *parser) openBlock(line int, typ string) {
	p.block = &block{ordinal: p.blocks, line: line, typ: typ}
	p.blocks++
	p.state = stateQuestion
}

func (p *parser) finishBlock() {
	if p.block == nil {
		return
	}
	b := p.block
	p.block = nil
	p.state = stateProse

	q, reason := b.question()
	if reason != "" {
		slog.Warn("content: skipped malformed question block",
			"ordinal", b.ordinal,
			"line", b.line,
			"reason", reason,
		)
		p.skipped = append(p.skipped, Skipped{Ordinal: b.ordinal, Line: b.line, Reason: reason})
		return
	}

	p.questions = append(p.questions, q)
}

// questionOpener matches "::: question [type]" and returns the raw type.
func questionOpener(line string) (string, bool) {
	if !strings.HasPrefix(line, blockMarker) {
		return "", false
	}

	fields := strings.Fields(line[len(blockMarker):])
	if len(fields) == 0 || !strings.EqualFold(fields[0], questionWord) {
		return "", false
	}

	return strings.ToLower(strings.Join(fields[1:], " ")), true
}

func heading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}

	if level == 0 || level > maxHeading || level == len(line) {
		return 0, "", false
	}

	if c := line[level]; c != ' ' && c != '\t' {
		return 0, "", false
	}

	title := strings.TrimSpace(line[level:])
	// Optional closing sequence: "## Title ##".
	if t := strings.TrimRight(title, "#"); t != title && (t == "" || strings.HasSuffix(t, " ")) {
		title = strings.TrimSpace(t)
	}

	if title == "" {
		return 0, "", false
	}

	return level, title, true
}

func fenceMarker(line string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(line, f) {
			return f
		}
	}
	return ""
}
