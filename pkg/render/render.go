package render

import (
	"context"
	"fmt"

	"github.com/matzehuels/strongarm/pkg/cellio"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
)

// Output formats.
const (
	FormatSVG     = "svg"
	FormatPNG     = "png"
	FormatPDF     = "pdf"
	FormatJSON    = "json"
	FormatDOT     = "dot"
	FormatNetlist = "netlist"
)

// Formats lists every format Render accepts.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatDOT, FormatNetlist}

// ValidateFormat returns an INVALID_FORMAT error for unknown formats.
func ValidateFormat(format string) error {
	return apperrors.ValidateFormat(format, Formats...)
}

// Extension returns the file extension for format.
func Extension(format string) string {
	if format == FormatNetlist {
		return "netlist.svg"
	}
	return format
}

// Render produces doc in the given format. "netlist" is the Graphviz
// netlist diagram as SVG; "dot" is its source.
func Render(ctx context.Context, doc *cellio.Document, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatSVG:
		return SVG(doc), nil
	case FormatPNG:
		return ToPNG(ctx, SVG(doc), 2.0)
	case FormatPDF:
		return ToPDF(ctx, SVG(doc))
	case FormatJSON:
		return cellio.Marshal(doc)
	}
	if doc.Netlist == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "cell %s has no netlist", doc.Name)
	}
	if format == FormatDOT {
		return []byte(NetlistDOT(doc.Netlist)), nil
	}
	data, err := NetlistSVG(ctx, doc.Netlist)
	if err != nil {
		return nil, fmt.Errorf("render netlist: %w", err)
	}
	return data, nil
}
