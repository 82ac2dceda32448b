package input

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func setTerminal(t *testing.T, in string) {
	Terminal = term.NewTerminal(ReadWriter{
		Reader: bytes.NewBufferString(in),
		Writer: io.Discard,
	}, "")
	t.Cleanup(func() { Terminal = nil })
}

func TestReadLine(t *testing.T) {
	setTerminal(t, "first\rsecond\r")
	ln, err := ReadLine("> ")
	require.NoError(t, err)
	require.Equal(t, "first", ln)
	ln, err = ReadLine("> ")
	require.NoError(t, err)
	require.Equal(t, "second", ln)
}

func TestReadHiddenLine(t *testing.T) {
	setTerminal(t, "secret\r")
	ln, err := ReadHiddenLine("key> ")
	require.NoError(t, err)
	require.Equal(t, "secret", ln)
}

func TestConfirmTx(t *testing.T) {
	for in, ok := range map[string]bool{"y\r": true, "yes\r": true, "n\r": false, "\r": false} {
		setTerminal(t, in)
		w := bytes.NewBuffer(nil)
		err := ConfirmTx(w, "summary\n")
		require.Equal(t, "summary\n", w.String())
		if ok {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrCancelled)
		}
	}
}
