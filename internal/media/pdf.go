package media

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText parses a PDF page by page. Each show-text run is kept as a
// separate unit: runs within a page are joined with single spaces and pages
// are separated by a newline.
func ExtractPDFText(raw []byte) (text string, err error) {
	if len(raw) == 0 {
		return "", ErrEmptyPayload
	}
	// The parser panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrPDFExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPDFExtraction, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if runs := pageRuns(page); len(runs) > 0 {
			pages = append(pages, strings.Join(runs, " "))
		}
	}
	return strings.Join(pages, "\n"), nil
}

// pageRuns walks the page content stream in order and returns the decoded
// text of every Tj, ', " operator and every string element of TJ.
func pageRuns(page pdf.Page) []string {
	fonts := make(map[string]pdf.Font)
	for _, name := range page.Fonts() {
		fonts[name] = page.Font(name)
	}

	var (
		enc  pdf.TextEncoding
		runs []string
	)
	show := func(s string) {
		if enc != nil {
			s = enc.Decode(s)
		}
		if s = strings.TrimSpace(s); s != "" {
			runs = append(runs, s)
		}
	}

	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "Tf":
			enc = nil
			if len(args) == 2 {
				if font, ok := fonts[args[0].Name()]; ok {
					enc = font.Encoder()
				}
			}
		case "Tj", "'", "\"":
			if n > 0 {
				show(args[n-1].RawString())
			}
		case "TJ":
			if n == 0 {
				return
			}
			v := args[0]
			for i := 0; i < v.Len(); i++ {
				if x := v.Index(i); x.Kind() == pdf.String {
					show(x.RawString())
				}
			}
		}
	})
	return runs
}
