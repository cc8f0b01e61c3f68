// Package export renders an article as a standalone HTML document and
// converts it to PDF or DOCX.
package export

import "errors"

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

func (f Format) Valid() bool {
	switch f {
	case FormatHTML, FormatPDF, FormatDOCX:
		return true
	}
	return false
}

// Request contains parameters for an export operation
type Request struct {
	ArticleID string
	Format    Format
	// AllowDrafts lets admins export unpublished or hidden articles.
	AllowDrafts bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates the requested format is not one of html, pdf or docx.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrNotExportable indicates the article is not visible to the caller.
	ErrNotExportable = errors.New("article not available for export")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
