package export

// Table is the tabular content shared by every renderer.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Renderer turns a table into a downloadable document.
type Renderer interface {
	Render(Table) ([]byte, error)
	Extension() string
	ContentType() string
}

// ForFormat returns the renderer registered for format, or nil.
func ForFormat(format string) Renderer {
	switch format {
	case "csv":
		return CSVRenderer{}
	case "pdf":
		return PDFRenderer{}
	default:
		return nil
	}
}
