// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable marks a PDF whose text cannot be extracted. Callers treat it
// as a permanent per-record condition rather than a transient failure.
var ErrUnreadable = errors.New("unreadable pdf")

// maxTextBytes caps extracted text so a pathological PDF cannot blow up the
// prompt sent to the model.
const maxTextBytes = 512 * 1024

// ExtractText pulls the plain text out of a PDF file. Malformed PDFs make
// the parser panic, so extraction is wrapped in a recover and reported as
// ErrUnreadable along with parse errors.
func ExtractText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parsing %s: %v", ErrUnreadable, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrUnreadable, path, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extracting text from %s: %v", ErrUnreadable, path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: reading text from %s: %v", ErrUnreadable, path, err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("%w: %s contains no extractable text", ErrUnreadable, path)
	}
	if buf.Len() > maxTextBytes {
		buf.Truncate(maxTextBytes)
	}
	return buf.String(), nil
}
