package content

import (
	"fmt"
	"strings"

	"github.com/victornm/learn/internal/domain"
)

// block accumulates the lines of one question block until it is closed.
type block struct {
	ordinal int
	line    int
	typ     string
	// fence is the open code fence marker, if any.
	fence string
	code  bool

	text        []string
	options     []string
	correct     []int
	explanation []string

	// malformed holds the first structural problem seen while scanning lines.
	malformed string
}

func (b *block) add(line string) {
	switch {
	case line == "":
		return

	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), line == "-", line == "*":
		b.addOption(strings.TrimSpace(line[1:]))

	case strings.HasPrefix(line, ">"):
		if text := strings.TrimSpace(line[1:]); text != "" {
			b.explanation = append(b.explanation, text)
		}

	default:
		if len(b.options) > 0 {
			b.fail("question text after options")
			return
		}
		b.text = append(b.text, line)
	}
}

// addCode keeps a fenced line verbatim as question text.
func (b *block) addCode(raw string) {
	if len(b.options) > 0 {
		b.fail("question text after options")
		return
	}
	b.code = true
	b.text = append(b.text, strings.TrimRight(raw, " \t\r"))
}

func (b *block) addOption(option string) {
	if opt, ok := strings.CutSuffix(option, correctSuffix); ok {
		option = strings.TrimSpace(opt)
		b.correct = append(b.correct, len(b.options))
	}

	if option == "" {
		b.fail(fmt.Sprintf("option %d is empty", len(b.options)))
	}

	b.options = append(b.options, option)
}

func (b *block) fail(reason string) {
	if b.malformed == "" {
		b.malformed = reason
	}
}

// question converts the block, or returns why it is malformed.
func (b *block) question() (domain.InlineQuestion, string) {
	typ := domain.QuestionType(b.typ)
	if b.typ == "" {
		typ = domain.QuestionTypeMultipleChoice
	}

	if !typ.Valid() {
		return domain.InlineQuestion{}, fmt.Sprintf("unknown question type %q", b.typ)
	}

	if b.malformed != "" {
		return domain.InlineQuestion{}, b.malformed
	}

	if len(b.text) == 0 {
		return domain.InlineQuestion{}, "missing question text"
	}

	sep := " "
	if b.code {
		sep = "\n"
	}

	q := domain.InlineQuestion{
		ID:          QuestionID(b.ordinal),
		Text:        strings.Join(b.text, sep),
		Type:        typ,
		Options:     append([]string{}, b.options...),
		Explanation: strings.Join(b.explanation, " "),
	}

	switch {
	case typ == domain.QuestionTypeTrueFalse && len(b.options) != 2:
		return domain.InlineQuestion{}, fmt.Sprintf("true-false question needs exactly 2 options, got %d", len(b.options))

	case typ.Closed() && len(b.options) < 2:
		return domain.InlineQuestion{}, fmt.Sprintf("%s question needs at least 2 options, got %d", typ, len(b.options))

	case typ.Closed() && len(b.correct) != 1:
		return domain.InlineQuestion{}, fmt.Sprintf("%s question needs exactly one correct option, got %d", typ, len(b.correct))

	case !typ.Closed() && len(b.correct) > 0:
		return domain.InlineQuestion{}, fmt.Sprintf("%s question cannot flag a correct option", typ)
	}

	if typ.Closed() {
		idx := b.correct[0]
		q.CorrectAnswerIndex = &idx
	}

	return q, ""
}
