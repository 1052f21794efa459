package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"ragvault/internal/pkg/docxextract"
	"ragvault/internal/pkg/pdfextract"
)

var (
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrExtractionFailed = errors.New("text extraction failed")
)

// ImageDescriber produces a text description of an image via an external
// vision-capable model.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

// ImageLabeler is the local fallback when no vision model is configured:
// classify the image and render the labels as text.
type ImageLabeler interface {
	Describe(data []byte) (string, error)
}

// Extractor turns an uploaded file into plain text. PDFs and DOCX are parsed
// locally, plain text passes through, images go through the vision model
// with the local classifier as fallback.
type Extractor struct {
	describer ImageDescriber
	labeler   ImageLabeler
}

func New(describer ImageDescriber, labeler ImageLabeler) *Extractor {
	return &Extractor{describer: describer, labeler: labeler}
}

// FileType returns the normalized extension without the dot, e.g. "pdf".
func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Supported reports whether Extract can handle the file.
func Supported(filename string) bool {
	switch FileType(filename) {
	case "pdf", "docx", "txt", "md", "png", "jpg", "jpeg":
		return true
	}
	return false
}

// IsImage reports whether the file takes the image-description path.
func IsImage(filename string) bool {
	switch FileType(filename) {
	case "png", "jpg", "jpeg":
		return true
	}
	return false
}

func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	switch FileType(filename) {
	case "txt", "md":
		return string(data), nil
	case "pdf":
		text, err := pdfextract.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		return text, nil
	case "docx":
		text, err := docxextract.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		return text, nil
	case "png":
		return e.describeImage(ctx, "image/png", data)
	case "jpg", "jpeg":
		return e.describeImage(ctx, "image/jpeg", data)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
}

func (e *Extractor) describeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	var describeErr error
	if e.describer != nil {
		text, err := e.describer.DescribeImage(ctx, mimeType, data)
		if err == nil {
			return text, nil
		}
		describeErr = err
	}
	if e.labeler != nil {
		text, err := e.labeler.Describe(data)
		if err == nil {
			return text, nil
		}
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if describeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, describeErr)
	}
	return "", fmt.Errorf("%w: no image description backend configured", ErrExtractionFailed)
}
