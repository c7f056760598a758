// Package reader implements the capability.Reader (C1) for the plain
// text/Markdown source formats FileFlux reads directly without an
// external conversion step. Grounded on internal/utils's
// replacement-decoding idiom: extraction never fails on malformed
// bytes, it substitutes U+FFFD and reports the substitution as a
// Warning instead of erroring.
package reader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/iyulab/fileflux/internal/utils"
	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/model"
)

// PlainTextReader reads ".txt", ".md" and ".markdown" sources as
// UTF-8 text, tagging Hints with whether the source was already
// Markdown so downstream (C3 Markdown Converter) can skip conversion.
type PlainTextReader struct{}

var _ capability.Reader = PlainTextReader{}

// SupportedExtensions implements capability.Reader.
func (PlainTextReader) SupportedExtensions() []string { return []string{".txt", ".md", ".markdown"} }

// CanRead implements capability.Reader.
func (PlainTextReader) CanRead(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// Read implements capability.Reader.
func (PlainTextReader) Read(ctx context.Context, r io.Reader, filename string) (model.RawContent, error) {
	if err := ctx.Err(); err != nil {
		return model.RawContent{}, capability.NewError(capability.KindCancelled, "reader.read", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return model.RawContent{}, capability.NewError(capability.KindIoError, "reader.read", fmt.Errorf("%w: %v", capability.ErrIO, err))
	}

	text := utils.DecodeUTF8Replacing(string(data))

	var warnings []string
	if text != string(data) {
		warnings = append(warnings, "source contained invalid UTF-8 byte sequences, replaced with U+FFFD")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	hints := model.Hints{}
	if ext == ".md" || ext == ".markdown" {
		hints["already_markdown"] = true
	}

	return model.RawContent{
		Text: text,
		File: model.FileInfo{
			Name:        filename,
			Extension:   ext,
			Size:        int64(len(data)),
			Reader:      "PlainTextReader",
			ExtractedAt: time.Now(),
		},
		Hints:    hints,
		Warnings: warnings,
	}, nil
}
