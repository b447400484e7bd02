package transcript

import (
	"bytes"
	"errors"
	"io"

	"github.com/ledongthuc/pdf"
)

var errEmptyPDF = errors.New("pdf content is empty")

// ExtractPDFText returns the plain text of an in-memory PDF document.
func ExtractPDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPDF
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	textReader, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
