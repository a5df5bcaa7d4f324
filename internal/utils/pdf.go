package utils

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"rsc.io/pdf"
)

var ErrNoText = errors.New("document contains no extractable text")

// ExtractPDFText returns the text of every page, one line per text row.
func ExtractPDFText(data []byte) (text string, err error) {
	// the parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		runs := page.Content().Text
		if hasGlyphWidths(runs) {
			writePageText(&sb, runs)
		} else {
			writeStreamText(&sb, page)
		}
		sb.WriteString("\n")
	}

	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func writePageText(sb *strings.Builder, runs []pdf.Text) {
	var prev *pdf.Text
	for i := range runs {
		t := &runs[i]
		if prev != nil {
			switch {
			case math.Abs(t.Y-prev.Y) > prev.FontSize/2:
				sb.WriteString("\n")
			case t.X-(prev.X+prev.W) > prev.FontSize/4:
				sb.WriteString(" ")
			}
		}
		sb.WriteString(t.S)
		prev = t
	}
}

// hasGlyphWidths reports whether glyph positions can be used for spacing.
// Standard fonts embedded without /Widths put every glyph at the same origin.
func hasGlyphWidths(runs []pdf.Text) bool {
	for _, t := range runs {
		if t.W > 0 {
			return true
		}
	}
	return len(runs) == 0
}

// kerning past this many thousandths of an em is read as a word gap
const tjGapThreshold = -200

// writeStreamText reads the text operators of the page in stream order,
// keeping the literal spaces that positional extraction drops.
func writeStreamText(sb *strings.Builder, page pdf.Page) {
	var (
		enc  pdf.TextEncoding
		line strings.Builder
		rows []string
	)
	decode := func(v pdf.Value) string {
		if enc == nil {
			return v.RawString()
		}
		return enc.Decode(v.RawString())
	}
	breakLine := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			rows = append(rows, s)
		}
		line.Reset()
	}

	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "Tf":
			if len(args) == 2 {
				enc = page.Font(args[0].Name()).Encoder()
			}
		case "Td", "TD":
			if len(args) == 2 && args[1].Float64() != 0 {
				breakLine()
			} else {
				line.WriteString(" ")
			}
		case "Tm", "T*":
			breakLine()
		case "Tj":
			if len(args) == 1 {
				line.WriteString(decode(args[0]))
			}
		case "'", "\"":
			breakLine()
			if len(args) > 0 {
				line.WriteString(decode(args[len(args)-1]))
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				v := arr.Index(i)
				if v.Kind() == pdf.String {
					line.WriteString(decode(v))
				} else if v.Float64() <= tjGapThreshold {
					line.WriteString(" ")
				}
			}
		}
	})
	breakLine()

	sb.WriteString(strings.Join(rows, "\n"))
}
