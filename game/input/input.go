package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrNotTerminal = errors.New("not a terminal")

// Source supplies one line of player input per turn. Next returns io.EOF
// once input is exhausted.
type Source interface {
	Next() (string, error)
}

// LineReader reads newline-terminated lines
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps any reader, typically os.Stdin
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// Next returns the next line without its line ending. A final line with no
// newline is still returned before io.EOF.
func (l *LineReader) Next() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// KeyReader reads single key presses from a terminal in raw mode, so
// commands take effect without Enter. Arrow keys map to a, s, w and z.
type KeyReader struct {
	f *os.File
	r *bufio.Reader
}

// NewKeyReader fails with ErrNotTerminal when f is not a terminal
func NewKeyReader(f *os.File) (*KeyReader, error) {
	if !term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("%w: %s", ErrNotTerminal, f.Name())
	}
	return &KeyReader{f: f, r: bufio.NewReaderSize(f, 16)}, nil
}

// Next switches the terminal to raw mode for a single key and restores it
// before returning, so frames are drawn in cooked mode.
func (k *KeyReader) Next() (string, error) {
	fd := int(k.f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("cannot set terminal to raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	return ReadKey(k.r)
}

const (
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	keyEscape = 0x1b
)

var arrowKeys = map[byte]string{
	'A': "w",
	'B': "z",
	'C': "s",
	'D': "a",
}

// ReadKey decodes one key press. Ctrl+C and Ctrl+D end input with io.EOF,
// Enter yields an empty line and unknown escape sequences are dropped.
func ReadKey(r io.ByteReader) (string, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}

		switch b {
		case keyCtrlC, keyCtrlD:
			return "", io.EOF
		case '\r', '\n':
			return "", nil
		case keyEscape:
			b2, err := r.ReadByte()
			if err != nil {
				return "", err
			}
			// CSI (ESC [) and SS3 (ESC O) both carry arrow keys
			if b2 != '[' && b2 != 'O' {
				return string([]byte{b2}), nil
			}
			b3, err := r.ReadByte()
			if err != nil {
				return "", err
			}
			if key, ok := arrowKeys[b3]; ok {
				return key, nil
			}
			continue
		default:
			return string([]byte{b}), nil
		}
	}
}
