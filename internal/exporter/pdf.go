package exporter

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/render"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
)

// printCSS lays every booklet page out on its own sheet
const printCSS = `
.hidden, .passport-nav, .access-container { display: none !important; }
.section > div { page-break-after: always; }
.section > div:last-child { page-break-after: auto; }
`

// PDFOptions contains configuration for PDF generation
type PDFOptions struct {
	// Paper dimensions in inches
	PaperWidth  float64
	PaperHeight float64

	// Margins in inches
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	PrintBackground bool

	// ChromePath overrides the Chrome binary; CHROME_PATH is used when empty
	ChromePath string

	// AssetBaseURL is where the booklet's stylesheet and photo URLs resolve.
	// The page is loaded from a file:// URL, so without it they point nowhere.
	AssetBaseURL string

	Timeout time.Duration
}

// DefaultPDFOptions returns options for an A5 booklet page
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PaperWidth:      5.83,
		PaperHeight:     8.27,
		MarginTop:       0.39, // ~10mm
		MarginBottom:    0.39,
		MarginLeft:      0.39,
		MarginRight:     0.39,
		PrintBackground: true,
		Timeout:         60 * time.Second,
	}
}

// printFunc prints the HTML file at fileURL to PDF
type printFunc func(ctx context.Context, fileURL string, opts PDFOptions) ([]byte, error)

// PDFExporter prints the booklet with headless Chrome
type PDFExporter struct {
	options PDFOptions
	print   printFunc
}

// NewPDFExporter creates a PDF exporter; zero options fall back to the defaults
func NewPDFExporter(opts PDFOptions) *PDFExporter {
	def := DefaultPDFOptions()
	if opts.PaperWidth <= 0 || opts.PaperHeight <= 0 {
		opts.PaperWidth, opts.PaperHeight = def.PaperWidth, def.PaperHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &PDFExporter{options: opts, print: chromePrint}
}

// Options returns the effective PDF options
func (e *PDFExporter) Options() PDFOptions {
	return e.options
}

// Export prints every page of the booklet, regardless of the selected section
func (e *PDFExporter) Export(ctx context.Context, res *render.Result) ([]byte, error) {
	if res == nil || res.Document == nil || res.Record == nil {
		return nil, fmt.Errorf("nothing rendered")
	}
	start := time.Now()
	log := logger.WithView(res.RenderID, res.Record.PassportNumber)

	html, err := printDocument(res.Document, e.options.AssetBaseURL)
	if err != nil {
		return nil, err
	}

	// Chrome loads the booklet from a temporary file to avoid data URL size limits
	tmpFile, err := os.CreateTemp("", "passportview-pdf-*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(html); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	ctx, cancel := context.WithTimeout(ctx, e.options.Timeout)
	defer cancel()

	data, err := e.print(ctx, "file://"+tmpPath, e.options)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(errors.ErrCodeExportTimeout,
				fmt.Sprintf("PDF export exceeded %s", e.options.Timeout), err)
		}
		log.Error("PDF export failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	log.Info("PDF export completed",
		zap.String("size", formatBytes(len(data))),
		zap.Duration("took", time.Since(start)),
	)
	return data, nil
}

// printDocument returns a copy of the booklet with every page visible and the
// print styles attached. A non-empty baseURL becomes the document's <base>
// unless the booklet already sets one.
func printDocument(doc *dom.Document, baseURL string) (string, error) {
	printable, err := dom.ParseString(doc.String())
	if err != nil {
		return "", err
	}
	for _, n := range printable.QueryAll(".section > div") {
		dom.RemoveClass(n, "hidden")
	}
	if container := printable.Query(".passport-container"); container != nil {
		dom.RemoveClass(container, "hidden")
	}
	if head := printable.Query("head"); head != nil {
		if baseURL != "" && dom.Find(head, "base[href]") == nil {
			base := dom.Element("base")
			dom.SetAttr(base, "href", strings.TrimSuffix(baseURL, "/")+"/")
			dom.Prepend(head, base)
		}
		dom.Append(head, dom.TextElement("style", printCSS))
	}
	return printable.String(), nil
}

func chromePrint(ctx context.Context, fileURL string, opts PDFOptions) ([]byte, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
		chromedp.WSURLReadTimeout(30*time.Second),
	)
	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)
	defer browserCancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(fileURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(opts.PaperWidth).
				WithPaperHeight(opts.PaperHeight).
				WithMarginTop(opts.MarginTop).
				WithMarginBottom(opts.MarginBottom).
				WithMarginLeft(opts.MarginLeft).
				WithMarginRight(opts.MarginRight).
				WithPrintBackground(opts.PrintBackground).
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	return pdf, err
}

// formatBytes converts bytes to human-readable format
func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := int64(bytes) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func (e *PDFExporter) Name() string          { return "PDF" }
func (e *PDFExporter) ContentType() string   { return "application/pdf" }
func (e *PDFExporter) FileExtension() string { return ".pdf" }
