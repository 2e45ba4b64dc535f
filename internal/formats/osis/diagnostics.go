package osis

import (
	"fmt"
	"log/slog"

	"github.com/FocuswithJustin/osisingest/internal/logging"
)

// Kind classifies a diagnostic.
type Kind int

const (
	// KindStructural marks an unrecognizable top-level document shape.
	KindStructural Kind = iota
	// KindMilestoneMismatch marks an end id that disagrees with, or
	// duplicates, the open start id.
	KindMilestoneMismatch
	// KindUnknownElement marks a tag with no handler.
	KindUnknownElement
	// KindUnknownAttribute marks an unexpected or missing attribute.
	KindUnknownAttribute
	// KindUnknownAnnotationSubtype marks a note or highlight type with no
	// dedicated rendering.
	KindUnknownAnnotationSubtype
	// KindTextQuality marks control characters, tabs or doubled whitespace.
	KindTextQuality
)

var kindNames = [...]string{
	KindStructural:               "StructuralError",
	KindMilestoneMismatch:        "MilestoneMismatch",
	KindUnknownElement:           "UnknownElement",
	KindUnknownAttribute:         "UnknownAttribute",
	KindUnknownAnnotationSubtype: "UnknownAnnotationSubtype",
	KindTextQuality:              "TextQualityWarning",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Diagnostic is one recorded warning.
type Diagnostic struct {
	Kind    Kind
	Message string
}

func (d Diagnostic) String() string {
	return d.Kind.String() + ": " + d.Message
}

// collector is the append-only diagnostics list of one document.
type collector struct {
	document string
	logger   *slog.Logger
	debug    bool
	items    []Diagnostic
}

func newCollector(document string, logger *slog.Logger, debug bool) *collector {
	return &collector{document: document, logger: logger, debug: debug}
}

func (c *collector) add(kind Kind, format string, args ...any) {
	d := Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
	c.items = append(c.items, d)
	if c.debug {
		logging.Diagnostic(c.logger, c.document, kind.String(), d.Message)
	}
}

func (c *collector) len() int {
	return len(c.items)
}

func (c *collector) strings() []string {
	out := make([]string, len(c.items))
	for i, d := range c.items {
		out[i] = d.String()
	}
	return out
}
