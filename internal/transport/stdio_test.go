package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockChunkReader delivers data in controlled chunks to simulate partial reads.
type mockChunkReader struct {
	chunks [][]byte
	index  int
}

func newMockChunkReader(chunks ...string) *mockChunkReader {
	byteChunks := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		byteChunks[i] = []byte(chunk)
	}

	return &mockChunkReader{chunks: byteChunks}
}

func (r *mockChunkReader) Read(p []byte) (int, error) {
	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}

	chunk := r.chunks[r.index]
	r.index++

	n := copy(p, chunk)

	return n, nil
}

// collectFrames drains the message channel until it closes.
func collectFrames(t *testing.T, messages <-chan []byte, errs <-chan error) [][]byte {
	t.Helper()

	var frames [][]byte

	for {
		select {
		case frame, ok := <-messages:
			if !ok {
				return frames
			}

			frames = append(frames, frame)

		case err, ok := <-errs:
			if ok && err != nil {
				t.Fatalf("unexpected transport error: %v", err)
			}

		case <-time.After(2 * time.Second):
			t.Fatal("timed out collecting frames")
		}
	}
}

func TestStdio_ReadsNewlineDelimitedFrames(t *testing.T) {
	r := strings.NewReader(`{"type":"request","id":"a","method":"ping"}` + "\n" +
		`{"type":"response","id":"a","result":"ok"}` + "\n")

	tr := NewStdio(slog.Default(), r, &bytes.Buffer{})

	messages, errs := tr.Messages(context.Background())
	frames := collectFrames(t, messages, errs)

	require.Len(t, frames, 2)
	require.JSONEq(t, `{"type":"request","id":"a","method":"ping"}`, string(frames[0]))
	require.JSONEq(t, `{"type":"response","id":"a","result":"ok"}`, string(frames[1]))
}

func TestStdio_FrameSplitAcrossReads(t *testing.T) {
	// One frame arriving in three partial reads must still come out whole.
	r := newMockChunkReader(
		`{"type":"request","id":`,
		`"abc","method":"stock.quote"`,
		`}`+"\n",
	)

	tr := NewStdio(slog.Default(), r, &bytes.Buffer{})

	messages, errs := tr.Messages(context.Background())
	frames := collectFrames(t, messages, errs)

	require.Len(t, frames, 1)
	require.JSONEq(t, `{"type":"request","id":"abc","method":"stock.quote"}`, string(frames[0]))
}

func TestStdio_FramesAreIndependentCopies(t *testing.T) {
	// The scanner reuses its buffer; handed-out frames must not alias it.
	r := strings.NewReader("first-frame-payload\nsecond-frame-payload\n")

	tr := NewStdio(slog.Default(), r, &bytes.Buffer{})

	messages, errs := tr.Messages(context.Background())
	frames := collectFrames(t, messages, errs)

	require.Len(t, frames, 2)
	require.Equal(t, "first-frame-payload", string(frames[0]))
	require.Equal(t, "second-frame-payload", string(frames[1]))
}

func TestStdio_SendAppendsNewline(t *testing.T) {
	var out bytes.Buffer

	tr := NewStdio(slog.Default(), strings.NewReader(""), &out)

	require.NoError(t, tr.Send(context.Background(), []byte(`{"type":"request","id":"x","method":"ping"}`)))
	require.Equal(t, `{"type":"request","id":"x","method":"ping"}`+"\n", out.String())
}

func TestStdio_SendDoesNotMutateCallerBuffer(t *testing.T) {
	var out bytes.Buffer

	tr := NewStdio(slog.Default(), strings.NewReader(""), &out)

	// Slice with spare capacity: a naive append would write into it.
	backing := make([]byte, 4, 8)
	copy(backing, "data")
	spare := backing[:4]

	require.NoError(t, tr.Send(context.Background(), spare))
	require.Equal(t, "data", string(backing[:4]))
	require.Equal(t, "data\n", out.String())
}

func TestStdio_SendAfterCloseFails(t *testing.T) {
	tr := NewStdio(slog.Default(), strings.NewReader(""), &bytes.Buffer{})

	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), []byte("late"))
	require.Error(t, err)
}

func TestStdio_SendRespectsCancelledContext(t *testing.T) {
	tr := NewStdio(slog.Default(), strings.NewReader(""), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Send(ctx, []byte("never"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestStdio_CloseIsIdempotent(t *testing.T) {
	tr := NewStdio(slog.Default(), strings.NewReader(""), &bytes.Buffer{})

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

func TestSubprocess_SendBeforeStartFails(t *testing.T) {
	tr := NewSubprocess(slog.Default(), "/does/not/matter", nil, nil, nil)

	err := tr.Send(context.Background(), []byte("early"))
	require.Error(t, err)
	require.False(t, tr.IsReady())
}

func TestSubprocess_CloseWithoutStartIsSafe(t *testing.T) {
	tr := NewSubprocess(slog.Default(), "/does/not/matter", nil, nil, nil)

	require.NoError(t, tr.Close())
}
