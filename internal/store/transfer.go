package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
)

var ErrIncompleteTransfer = errors.New("transfer ended before end-of-file marker")

// SendFileContents writes the file's lines followed by the end-of-file
// sentinel line.
func SendFileContents(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if _, err := bw.WriteString(scanner.Text() + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if _, err := bw.WriteString(protocol.EndOfFile + "\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// ReceiveFileContents copies lines from r into w until the sentinel line.
// The sentinel itself is not written. It returns the number of bytes written.
func ReceiveFileContents(r io.Reader, w io.Writer) (int64, error) {
	var written int64
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return written, fmt.Errorf("reading file contents: %w", err)
		}
		if trimLine(line) == protocol.EndOfFile {
			return written, nil
		}
		if err == io.EOF {
			return written, ErrIncompleteTransfer
		}
		n, werr := io.WriteString(w, trimLine(line)+"\n")
		written += int64(n)
		if werr != nil {
			return written, werr
		}
	}
}

func trimLine(line string) string {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line
}
