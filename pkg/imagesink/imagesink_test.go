package imagesink_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/imagesink"
)

type memSink struct {
	writes map[string][]byte
	fail   bool
}

func (m *memSink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if m.fail {
		return "", fmt.Errorf("sink unavailable")
	}
	if m.writes == nil {
		m.writes = make(map[string][]byte)
	}
	m.writes[name] = data
	return "ref/" + name, nil
}

func dataURI(payload []byte) string {
	return fmt.Sprintf("![alt](data:image/png;base64,%s)", base64.StdEncoding.EncodeToString(payload))
}

func TestExtract_WritesImagesAtOrAboveThreshold(t *testing.T) {
	payload := []byte("this payload is intentionally large enough to pass the size floor")
	md := "Before " + dataURI(payload) + " after"
	sink := &memSink{}

	out, stats, err := imagesink.Extract(context.Background(), md, sink, imagesink.ExtractOptions{MinImageBytes: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Found)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 0, stats.Stripped)
	assert.Contains(t, out, "ref/")
	assert.Len(t, sink.writes, 1)
}

func TestExtract_StripsImagesBelowThreshold(t *testing.T) {
	payload := []byte("tiny")
	md := dataURI(payload)
	sink := &memSink{}

	out, stats, err := imagesink.Extract(context.Background(), md, sink, imagesink.ExtractOptions{MinImageBytes: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stripped)
	assert.Contains(t, out, "stripped")
	assert.Empty(t, sink.writes)
}

func TestExtract_NilSinkIsNoOp(t *testing.T) {
	md := dataURI([]byte("hello"))
	out, stats, err := imagesink.Extract(context.Background(), md, nil, imagesink.ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, md, out)
	assert.Equal(t, imagesink.ExtractStats{}, stats)
}

func TestExtract_SinkFailureCountsAsErrorAndLeavesMatchUnchanged(t *testing.T) {
	md := dataURI([]byte("payload bytes that are plenty large for the floor"))
	sink := &memSink{fail: true}
	out, stats, err := imagesink.Extract(context.Background(), md, sink, imagesink.ExtractOptions{MinImageBytes: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, md, out)
}

func TestLocalSink_PutWritesAndReturnsPrefixedRef(t *testing.T) {
	var gotName string
	var gotData []byte
	sink := imagesink.NewLocalSink(func(name string, data []byte) error {
		gotName, gotData = name, data
		return nil
	}, "/images/")

	ref, err := sink.Put(context.Background(), "a.png", "image/png", []byte("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/images/a.png", ref)
	assert.Equal(t, "a.png", gotName)
	assert.Equal(t, []byte("bytes"), gotData)
}

func TestLocalSink_PutPropagatesWriteError(t *testing.T) {
	sink := imagesink.NewLocalSink(func(name string, data []byte) error {
		return fmt.Errorf("disk full")
	}, "/images/")
	_, err := sink.Put(context.Background(), "a.png", "image/png", []byte("bytes"))
	assert.Error(t, err)
}
