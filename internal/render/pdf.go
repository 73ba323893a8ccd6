package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily  = "Helvetica"
	fontSizePt  = 11
	lineSpacing = 1.25
	// lineHeightMM is the baseline advance for body text
	lineHeightMM = fontSizePt * 25.4 / 72.0 * lineSpacing
)

// Renderer builds PDF documents from template markup. Images referenced by
// [img:ID] lines are looked up in a per-template image map decoded once, not
// per document.
type Renderer struct {
	tmpDir string
}

// NewRenderer creates a renderer writing transient image files under tmpDir.
// An empty tmpDir falls back to the system temp directory.
func NewRenderer(tmpDir string) *Renderer {
	return &Renderer{tmpDir: tmpDir}
}

// RenderDocument renders markup into a PDF at outputPath, creating parent
// directories as needed. Unknown image ids and undecodable placeholders
// render inline markers instead of failing the document.
func (r *Renderer) RenderDocument(markup string, images map[string][]byte, outputPath string) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(MarginMM, MarginMM, MarginMM)
	pdf.SetAutoPageBreak(true, MarginMM)
	pdf.SetTitle("Output from template", true)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", fontSizePt)
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	var tmpFiles []string
	defer func() {
		for _, f := range tmpFiles {
			_ = os.Remove(f)
		}
	}()

	for _, raw := range strings.Split(markup, "\n") {
		line := ClassifyLine(raw)
		switch line.Kind {
		case LineBlank:
			pdf.Ln(lineHeightMM)
		case LineBullet:
			pdf.SetFont(fontFamily, "", fontSizePt)
			pdf.Write(lineHeightMM, translate("• "))
			writeSegments(pdf, translate, ParseStyles(line.Content))
			pdf.Ln(lineHeightMM)
		case LineImage:
			path, err := r.embedImage(pdf, line.Content, images)
			if err != nil {
				return err
			}
			if path != "" {
				tmpFiles = append(tmpFiles, path)
			}
		case LinePlaceholder:
			writePlaceholder(pdf, translate, line.Content)
		case LineStyled:
			writeSegments(pdf, translate, ParseStyles(line.Content))
			pdf.Ln(lineHeightMM)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	return nil
}

// embedImage places the referenced image at the embed DPI, or an inline
// marker when the id is unknown. It returns the transient file path so the
// caller can clean it up after the document is written.
func (r *Renderer) embedImage(pdf *fpdf.Fpdf, id string, images map[string][]byte) (string, error) {
	data, ok := images[id]
	if !ok {
		pdf.SetFont(fontFamily, "", fontSizePt)
		pdf.Write(lineHeightMM, fmt.Sprintf("[image not found: %s]", id))
		pdf.Ln(lineHeightMM)
		return "", nil
	}

	path, widthPx, err := prepareImage(data, r.tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image %s: %w", id, err)
	}

	widthMM := float64(widthPx) / ImageDPI * 25.4
	pdf.ImageOptions(path, MarginMM, 0, widthMM, 0, true,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return path, nil
}

func writePlaceholder(pdf *fpdf.Fpdf, translate func(string) string, tagBody string) {
	decoded, ok := DecodePlaceholder(tagBody)
	if !ok {
		pdf.SetFont(fontFamily, "", fontSizePt)
		pdf.Write(lineHeightMM, "[invalid placeholder]")
		pdf.Ln(lineHeightMM)
		return
	}

	for _, inner := range strings.Split(decoded, "\n") {
		writeSegments(pdf, translate, ParseTagged(inner))
		pdf.Ln(lineHeightMM)
	}
}

func writeSegments(pdf *fpdf.Fpdf, translate func(string) string, segments []TextSegment) {
	for _, seg := range segments {
		pdf.SetFont(fontFamily, fontStyle(seg.Style), fontSizePt)
		pdf.Write(lineHeightMM, translate(seg.Text))
	}
}

func fontStyle(style TextStyle) string {
	switch style {
	case StyleBold:
		return "B"
	case StyleItalic:
		return "I"
	case StyleBoldItalic:
		return "BI"
	default:
		return ""
	}
}
