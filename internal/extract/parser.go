package extract

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Example is the structured content of one recognized example block.
type Example struct {
	// Title is the declared test file name, including its extension,
	// NFC-normalized at the parse boundary.
	Title string

	// Target is the entry-point name decomposed from the title.
	Target string

	// Fail is set when the title carries the _fail marker.
	Fail bool

	// Task is set when the title carries the _task marker.
	Task bool

	// Source is the trimmed program text of the wdl code section.
	Source string

	// Input, Output and Config hold the raw text of the optional JSON
	// sections. An absent or blank section is the empty string.
	Input  string
	Output string
	Config string

	// Line is the document line of the block's opening delimiter.
	Line int
}

const fence = "```"

var (
	headerRe = regexp.MustCompile(`(?s)^\s*<details>\s*<summary>\s*Example:\s*(.+?)\s*` + fence + `wdl`)
	sumEndRe = regexp.MustCompile(`^\s*</summary>`)
	pOpenRe  = regexp.MustCompile(`^\s*<p>`)
	inputRe  = regexp.MustCompile(`(?s)^\s*Example input:\s*` + fence + `json(.*?)` + fence)
	outputRe = regexp.MustCompile(`(?s)^\s*Example output:\s*` + fence + `json(.*?)` + fence)
	configRe = regexp.MustCompile(`(?s)^\s*Test config:\s*` + fence + `json(.*?)` + fence)
	pCloseRe = regexp.MustCompile(`^\s*</p>`)
	closeRe  = regexp.MustCompile(`^\s*</details>\s*$`)

	filenameRe = regexp.MustCompile(`^(.+?)(_fail)?(_task)?\.wdl$`)
	versionRe  = regexp.MustCompile(`version\s+([\d.]+|development)`)
)

// Parse recognizes the grammar of one raw block and checks the program's
// version declaration against the registry's target version. Any block
// that fails the grammar is a fatal error for the whole extraction run.
func Parse(block Block, version string) (*Example, error) {
	rest := block.Text

	m := headerRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, &Error{
			Code:    ErrCodeGrammar,
			Message: "block does not begin with a titled wdl example",
			Line:    block.Line,
		}
	}
	title := norm.NFC.String(m[1])
	rest = rest[len(m[0]):]

	end := strings.Index(rest, fence)
	if end < 0 {
		return nil, &Error{
			Code:    ErrCodeGrammar,
			Message: "unterminated wdl code section",
			Title:   title,
			Line:    block.Line,
		}
	}
	source := strings.TrimSpace(rest[:end])
	rest = rest[end+len(fence):]

	ex := &Example{Title: title, Source: source, Line: block.Line}

	loc := sumEndRe.FindStringIndex(rest)
	if loc == nil {
		return nil, &Error{
			Code:    ErrCodeGrammar,
			Message: "code section is not closed by </summary>",
			Title:   title,
			Line:    block.Line,
		}
	}
	rest = rest[loc[1]:]

	if loc := pOpenRe.FindStringIndex(rest); loc != nil {
		rest = rest[loc[1]:]
		ex.Input, rest = takeSection(inputRe, rest)
		ex.Output, rest = takeSection(outputRe, rest)
		ex.Config, rest = takeSection(configRe, rest)
		loc = pCloseRe.FindStringIndex(rest)
		if loc == nil {
			return nil, &Error{
				Code:    ErrCodeGrammar,
				Message: "example body is not closed by </p>",
				Title:   title,
				Line:    block.Line,
			}
		}
		rest = rest[loc[1]:]
	}

	if !closeRe.MatchString(rest) {
		return nil, &Error{
			Code:    ErrCodeGrammar,
			Message: "unexpected content before closing delimiter",
			Title:   title,
			Line:    block.Line,
		}
	}

	f := filenameRe.FindStringSubmatch(title)
	if f == nil {
		return nil, &Error{
			Code:    ErrCodeNaming,
			Message: fmt.Sprintf("invalid test file name %q", title),
			Title:   title,
			Line:    block.Line,
		}
	}
	ex.Target = f[1]
	ex.Fail = f[2] != ""
	ex.Task = f[3] != ""

	v := versionRe.FindStringSubmatch(source)
	if v == nil {
		return nil, &Error{
			Code:    ErrCodeVersion,
			Message: "program does not contain a version declaration",
			Title:   title,
			Line:    block.Line,
		}
	}
	// Exact string equality: "1.0" != "1".
	if v[1] != version {
		return nil, &Error{
			Code:    ErrCodeVersion,
			Message: fmt.Sprintf("declared version %q does not match target version %q", v[1], version),
			Title:   title,
			Line:    block.Line,
		}
	}

	return ex, nil
}

// takeSection consumes an optional labeled fenced JSON section at the
// start of rest. A blank section is reported as absent.
func takeSection(re *regexp.Regexp, rest string) (string, string) {
	m := re.FindStringSubmatch(rest)
	if m == nil {
		return "", rest
	}
	return strings.TrimSpace(m[1]), rest[len(m[0]):]
}
