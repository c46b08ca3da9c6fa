package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

func init() {
	key := os.Getenv("UNIDOC_LICENSE_KEY")
	if key == "" {
		return
	}
	if err := license.SetMeteredKey(key); err != nil {
		log.Printf("WARN: Failed to set Unidoc license key: %v. PDF import will fail.", err)
	}
}

// ExtractTextFromUpload returns the text content of an uploaded
// document. The file type is decided by extension; .txt and .md pass
// through, .pdf goes through UniPDF page extraction.
func ExtractTextFromUpload(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md":
		return string(data), nil
	case ".pdf":
		return extractTextFromPDF(data)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractTextFromPDF concatenates the text of every page.
func extractTextFromPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}
