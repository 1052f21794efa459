package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDescriber struct {
	text string
	err  error
}

func (f *fakeDescriber) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	return f.text, f.err
}

type fakeLabeler struct {
	text string
	err  error
}

func (f *fakeLabeler) Describe(data []byte) (string, error) {
	return f.text, f.err
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "pdf", FileType("report.PDF"))
	assert.Equal(t, "txt", FileType("notes.txt"))
	assert.Equal(t, "", FileType("Makefile"))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("a.docx"))
	assert.True(t, Supported("a.md"))
	assert.True(t, Supported("photo.JPEG"))
	assert.False(t, Supported("archive.zip"))
	assert.False(t, Supported("binary.exe"))
	assert.False(t, Supported("noext"))
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("scan.png"))
	assert.True(t, IsImage("scan.jpg"))
	assert.False(t, IsImage("scan.pdf"))
}

func TestExtractPlainTextPassthrough(t *testing.T) {
	e := New(nil, nil)
	text, err := e.Extract(context.Background(), "notes.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	text, err = e.Extract(context.Background(), "readme.md", []byte("# Title"))
	require.NoError(t, err)
	assert.Equal(t, "# Title", text)
}

func TestExtractUnsupportedType(t *testing.T) {
	e := New(nil, nil)
	_, err := e.Extract(context.Background(), "binary.exe", []byte{0x4d, 0x5a})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	e := New(nil, nil)
	text, err := e.Extract(context.Background(), "doc.docx", data)
	require.NoError(t, err)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestExtractDocxCorrupt(t *testing.T) {
	e := New(nil, nil)
	_, err := e.Extract(context.Background(), "doc.docx", []byte("not a zip"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractImageUsesDescriber(t *testing.T) {
	e := New(&fakeDescriber{text: "a cat on a chair"}, &fakeLabeler{text: "ignored"})
	text, err := e.Extract(context.Background(), "photo.png", []byte("fakeimg"))
	require.NoError(t, err)
	assert.Equal(t, "a cat on a chair", text)
}

func TestExtractImageFallsBackToLabeler(t *testing.T) {
	e := New(&fakeDescriber{err: errors.New("model offline")}, &fakeLabeler{text: "Image of: cat, chair"})
	text, err := e.Extract(context.Background(), "photo.jpg", []byte("fakeimg"))
	require.NoError(t, err)
	assert.Equal(t, "Image of: cat, chair", text)
}

func TestExtractImageNoBackend(t *testing.T) {
	e := New(nil, nil)
	_, err := e.Extract(context.Background(), "photo.png", []byte("fakeimg"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractImageBothBackendsFail(t *testing.T) {
	e := New(&fakeDescriber{err: errors.New("model offline")}, &fakeLabeler{err: errors.New("no labels")})
	_, err := e.Extract(context.Background(), "photo.png", []byte("fakeimg"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
