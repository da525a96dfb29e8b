// Package probe checks JavaScript for syntax errors without running it.
package probe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// FriendlyBraceMessage replaces the raw parser message for a stray "}"
const FriendlyBraceMessage = "Likely a standalone keyword, function with no implementation, or incorrectly closed braces."

const (
	sourceName = "script"
	// Same wrapper the Function constructor uses; the body starts on line 3
	wrapperHead  = "(function anonymous(\n) {\n"
	wrapperTail  = "\n})"
	wrapperLines = 2
)

var (
	braceMessages = []string{"Unexpected token }", "Unexpected token '}'"}
	linePattern   = regexp.MustCompile(`Line (\d+):(\d+)`)
)

// Diagnostic describes a syntax problem found by Check
type Diagnostic struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Friendly bool   `json:"friendly"`
}

// String formats the diagnostic as "Kind: message"
func (d *Diagnostic) String() string {
	return d.Kind + ": " + d.Message
}

// Check compiles js as a function body, as new Function(js) would, and
// reports the first syntax error. It returns nil when js compiles. Nothing
// is evaluated: the source is compiled into a program that is never run.
func Check(js string) (diag *Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			diag = &Diagnostic{Kind: "Error", Message: fmt.Sprint(r)}
		}
	}()

	_, err := goja.Compile(sourceName, wrapperHead+js+wrapperTail, false)
	if err == nil {
		return nil
	}
	return diagnose(err)
}

func diagnose(err error) *Diagnostic {
	d := &Diagnostic{Kind: "SyntaxError", Message: err.Error()}

	var syntaxErr *goja.CompilerSyntaxError
	var refErr *goja.CompilerReferenceError
	switch {
	case errors.As(err, &syntaxErr):
		d.Message = syntaxErr.Message
	case errors.As(err, &refErr):
		d.Kind = "ReferenceError"
		d.Message = refErr.Message
	}
	d.Message = relocate(strings.TrimPrefix(d.Message, sourceName+": "))

	for _, raw := range braceMessages {
		if strings.Contains(d.Message, raw) {
			d.Message = FriendlyBraceMessage
			d.Friendly = true
			break
		}
	}
	return d
}

// relocate shifts parser line numbers back to the user's own source
func relocate(msg string) string {
	return linePattern.ReplaceAllStringFunc(msg, func(m string) string {
		parts := linePattern.FindStringSubmatch(m)
		line, err := strconv.Atoi(parts[1])
		if err != nil || line <= wrapperLines {
			return m
		}
		return fmt.Sprintf("Line %d:%s", line-wrapperLines, parts[2])
	})
}
