/*
Package input reads user input from the terminal, hidden input is used for
private keys.
*/
package input

import (
	"io"
	"os"
	"syscall"

	"golang.org/x/term"
)

// ReadWriter combines a reader and a writer, it allows to create a terminal
// over arbitrary streams.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// Terminal is a terminal used for input. If `nil`, stdin is used.
var Terminal *term.Terminal

// ReadLine reads a line from the input without trailing '\n'.
func ReadLine(prompt string) (string, error) {
	trm := Terminal
	if trm == nil {
		s, err := term.MakeRaw(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		defer func() { _ = term.Restore(int(syscall.Stdin), s) }()
		trm = term.NewTerminal(ReadWriter{
			Reader: os.Stdin,
			Writer: os.Stdout,
		}, "")
	}
	return readLine(trm, prompt)
}

func readLine(trm *term.Terminal, prompt string) (string, error) {
	_, err := trm.Write([]byte(prompt))
	if err != nil {
		return "", err
	}
	return trm.ReadLine()
}

// ReadHiddenLine reads a line from the input without echoing it.
func ReadHiddenLine(prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	return readSecurePassword(prompt)
}

// ConfirmTx asks for a confirmation to send the transaction described by
// the summary, only "y" and "yes" answers are accepted.
func ConfirmTx(w io.Writer, summary string) error {
	_, _ = io.WriteString(w, summary)
	ln, err := ReadLine("Relay transaction (y|N)> ")
	if err != nil {
		return err
	}
	if ln != "y" && ln != "Y" && ln != "yes" && ln != "Yes" {
		return ErrCancelled
	}
	return nil
}
