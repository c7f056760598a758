// Package imagesink implements the image-extraction write path
// described in §6: decoding base64-embedded images out of converted
// Markdown and writing them to a Sink, either stripping them (if
// below min_image_size) or replacing the inline data URI with a
// reference to the written object. Grounded on the teacher's
// internal/storage/minio.go ObjectStorage interface, generalized from
// RAG source-document storage to extracted-image storage.
package imagesink

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"

	"github.com/google/uuid"
)

// Sink writes an extracted image's bytes somewhere durable and
// returns a reference string (a path, URL, or object key) that the
// Markdown converter substitutes for the original data URI.
type Sink interface {
	Put(ctx context.Context, name string, contentType string, data []byte) (ref string, err error)
}

// imageDataURIRe matches a Markdown image whose source is a base64
// data URI: ![alt](data:image/<ext>;base64,<data>)
var imageDataURIRe = regexp.MustCompile(`!\[([^\]]*)\]\(data:image/([a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=\s]+)\)`)

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// MinImageBytes is the decoded-size floor below which an image is
	// stripped entirely rather than written to the sink (§6).
	MinImageBytes int
}

// ExtractStats summarizes what Extract did.
type ExtractStats struct {
	Found    int
	Written  int
	Stripped int
	Errors   int
}

// Extract scans markdown for base64 image data URIs, writing each one
// at or above opts.MinImageBytes to sink and replacing it with a
// reference link, and stripping any image below the threshold by
// replacing its data URI with the literal target "stripped" (the alt
// text is kept).
func Extract(ctx context.Context, md string, sink Sink, opts ExtractOptions) (string, ExtractStats, error) {
	var stats ExtractStats
	if sink == nil {
		return md, stats, nil
	}

	out := imageDataURIRe.ReplaceAllStringFunc(md, func(match string) string {
		stats.Found++
		if err := ctx.Err(); err != nil {
			stats.Errors++
			return match
		}

		groups := imageDataURIRe.FindStringSubmatch(match)
		alt, ext, encoded := groups[1], groups[2], groups[3]

		data, err := base64.StdEncoding.DecodeString(stripWhitespace(encoded))
		if err != nil {
			stats.Errors++
			return match
		}

		if len(data) < opts.MinImageBytes {
			stats.Stripped++
			return fmt.Sprintf("![%s](stripped)", alt)
		}

		name := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
		contentType := "image/" + ext
		ref, err := sink.Put(ctx, name, contentType, data)
		if err != nil {
			stats.Errors++
			return match
		}

		stats.Written++
		return fmt.Sprintf("![%s](%s)", alt, ref)
	})

	return out, stats, nil
}

func stripWhitespace(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			continue
		}
		buf = append(buf, c)
	}
	return string(buf)
}

// LocalSink writes images to a local filesystem directory. It is the
// default Sink for single-process/dev usage.
type LocalSink struct {
	writeFile func(name string, data []byte) error
	refPrefix string
}

var _ Sink = (*LocalSink)(nil)

// NewLocalSink builds a LocalSink. writeFile is injected so tests can
// substitute an in-memory filesystem; refPrefix is prepended to the
// returned reference (e.g. a URL path prefix).
func NewLocalSink(writeFile func(name string, data []byte) error, refPrefix string) *LocalSink {
	return &LocalSink{writeFile: writeFile, refPrefix: refPrefix}
}

// Put implements Sink.
func (s *LocalSink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := s.writeFile(name, data); err != nil {
		return "", fmt.Errorf("imagesink: write %s: %w", name, err)
	}
	return s.refPrefix + name, nil
}

// readAllLimit bounds how much of a streamed image this package will
// buffer into memory when a caller hands Extract a reader instead of a
// string (reserved for a future streaming Extract variant).
const readAllLimit = 64 << 20 // 64 MiB

func readAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := io.CopyN(&buf, r, readAllLimit)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf.Bytes(), nil
}
