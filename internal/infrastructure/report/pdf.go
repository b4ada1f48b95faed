package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

const (
	fontFamily = "Helvetica"
	codeFamily = "Courier"

	hostReportDirPrefix = "Escaneo_IP_"
	hostReportDirDate   = "20060102"
)

// PDFGenerator renders markdown report bodies into PDF files under a
// root output directory. Session summaries land in <root>/<session>/;
// host reports in <root>/Escaneo_IP_<ip_with_underscores>_<YYYYMMDD>/.
type PDFGenerator struct {
	outputDir string
	logger    *zap.Logger
}

// NewPDFGenerator creates a generator rooted at outputDir, creating the
// directory when missing.
func NewPDFGenerator(outputDir string, logger *zap.Logger) (*PDFGenerator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report root %s: %w", outputDir, err)
	}
	return &PDFGenerator{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// OutputDir returns the report root directory.
func (g *PDFGenerator) OutputDir() string {
	return g.outputDir
}

// Generate renders the markdown into a PDF with a cover page and
// returns the path of the written file. A non-empty hostIP selects the
// per-host directory layout instead of the session one.
func (g *PDFGenerator) Generate(markdown, filename, sessionName, hostIP string) (string, error) {
	dir := filepath.Join(g.outputDir, sessionName)
	if hostIP != "" {
		dir = filepath.Join(g.outputDir, fmt.Sprintf("%s%s_%s",
			hostReportDirPrefix,
			strings.ReplaceAll(hostIP, ".", "_"),
			time.Now().Format(hostReportDirDate),
		))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir %s: %w", dir, err)
	}
	fullPath := filepath.Join(dir, filename)

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	// Core fonts are cp1252; the translator keeps accented Spanish intact.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	g.writeCover(pdf, tr, sessionName, hostIP)

	r := newPDFRenderer(pdf, tr, []byte(markdown))
	r.render()

	if err := pdf.OutputFileAndClose(fullPath); err != nil {
		return "", fmt.Errorf("failed to write PDF %s: %w", fullPath, err)
	}

	g.logger.Info("Report PDF generated",
		zap.String("path", fullPath),
		zap.String("session_name", sessionName),
	)
	return fullPath, nil
}

// writeCover draws the title page: report banner, session, the analyzed
// host when present, and the generation date.
func (g *PDFGenerator) writeCover(pdf *gofpdf.Fpdf, tr func(string) string, sessionName, hostIP string) {
	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 24)
	pdf.MultiCell(0, 12, tr("Informe de Seguridad Generado por Molly AI"), "", "L", false)
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "B", 20)
	pdf.MultiCell(0, 10, tr("Sesión: "+sessionName), "", "L", false)
	if hostIP != "" {
		pdf.SetFont(fontFamily, "B", 16)
		pdf.MultiCell(0, 8, tr("Host Analizado: "+hostIP), "", "L", false)
	}
	pdf.Ln(5)

	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, 5, tr("Fecha de Generación: "+time.Now().Format(reportTimeLayout)), "", "L", false)
	pdf.AddPage()
}
