package fileproc

import (
	"bytes"
	"fmt"
	"strings"

	dslipak "github.com/dslipak/pdf"
	ledongthuc "github.com/ledongthuc/pdf"

	"github.com/mkoyasu/chatto/pkg/utils"
)

// Extractor is one PDF text-extraction engine. Engines are tried in order
// and the first non-empty result wins, so adding an engine never touches
// the iteration logic.
type Extractor interface {
	Name() string
	Extract(data []byte) (string, error)
}

// DefaultExtractors is the configured engine priority order.
var DefaultExtractors = []Extractor{
	dslipakExtractor{},
	ledongthucExtractor{},
}

// ExtractPDFText runs the default engine chain over the document.
// It returns "" when no engine produced text.
func ExtractPDFText(data []byte) string {
	return ExtractWithEngines(data, DefaultExtractors)
}

// ExtractWithEngines tries each engine in order, falling through on error
// or empty output.
func ExtractWithEngines(data []byte, engines []Extractor) string {
	logger := utils.GetLogger()
	for _, engine := range engines {
		text, err := engine.Extract(data)
		if err != nil {
			logger.Warn("pdf extraction engine failed", "engine", engine.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("pdf extraction engine produced no text", "engine", engine.Name())
			continue
		}
		logger.Info("pdf text extracted", "engine", engine.Name(), "bytes", len(text))
		return text
	}
	return ""
}

type dslipakExtractor struct{}

func (dslipakExtractor) Name() string { return "dslipak" }

func (dslipakExtractor) Extract(data []byte) (text string, err error) {
	// The pdf parsers panic on some malformed documents; hostile input
	// must degrade to an error, never crash the upload path.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := dslipak.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- ページ %d ---\n%s", i, pageText))
	}
	return strings.Join(pages, "\n\n"), nil
}

type ledongthucExtractor struct{}

func (ledongthucExtractor) Name() string { return "ledongthuc" }

func (ledongthucExtractor) Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- ページ %d ---\n%s", i, pageText))
	}
	return strings.Join(pages, "\n\n"), nil
}
