package compose

import (
	_ "embed"
	"strings"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
)

// MarkerAttr tags the instrumentation script so importers can skip it
const MarkerAttr = "data-livepen"

const optionsPlaceholder = "__LIVEPEN_OPTIONS__"

//go:embed instrument.js
var instrumentTemplate string

// Composer assembles buffers into a single preview document
type Composer struct {
	script string
}

// New creates a composer whose instrumentation serializes logged values
// within the bounds of cfg
func New(cfg relay.SerializerConfig) *Composer {
	return &Composer{
		script: strings.Replace(instrumentTemplate, optionsPlaceholder, cfg.JSON(), 1),
	}
}

// Instrumentation returns the script installed ahead of any user code
func (c *Composer) Instrumentation() string {
	return c.script
}

// Compose builds the preview document for snap.
//
// The instrumentation script is the first script of <head> so its hooks
// exist before any user style or script is evaluated. The result depends
// only on snap and the composer's configuration.
func (c *Composer) Compose(snap buffer.Snapshot) string {
	var b strings.Builder
	b.Grow(len(c.script) + len(snap.HTML) + len(snap.CSS) + len(snap.JS) + 256)

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + buffer.DefaultName + "</title>\n")
	b.WriteString("<script " + MarkerAttr + "=\"instrument\">\n")
	b.WriteString(c.script)
	b.WriteString("</script>\n<style>\n")
	b.WriteString(snap.CSS)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(snap.HTML)
	b.WriteString("\n<script>\n")
	b.WriteString(snap.JS)
	b.WriteString("\n</script>\n</body>\n</html>\n")

	return b.String()
}
