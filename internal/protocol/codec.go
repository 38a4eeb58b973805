package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxFrameSize = 64 * 1024

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Encode(w io.Writer, msg Message) error {
	_, err := io.WriteString(w, msg.Frame()+"\n")
	return err
}

// ParseFrame classifies a single line by its shape. Literal tokens are
// checked first, then the tab-field count decides the message type.
func ParseFrame(line string) (Message, error) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedFrame)
	}
	fields := strings.Split(line, FieldSeparator)

	switch fields[0] {
	case tokenLeaving:
		msg := Leaving{}
		if len(fields) > 1 {
			msg.Neighbors = strings.Fields(fields[1])
		}
		return msg, nil
	case tokenHello:
		if len(fields) == 2 && fields[1] != "" {
			return Hello{Addr: fields[1]}, nil
		}
	case tokenFrom:
		if len(fields) == 2 && fields[1] != "" {
			return From{Addr: fields[1]}, nil
		}
	}

	switch len(fields) {
	case 1:
		if strings.ContainsAny(fields[0], " ") {
			return nil, fmt.Errorf("%w: file name with spaces %q", ErrMalformedFrame, line)
		}
		return FileRequest{Name: fields[0]}, nil
	case 2:
		id, err := ParseSearchID(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		hops, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: hop count %q", ErrMalformedFrame, fields[1])
		}
		return SearchRequest{ID: id, HopCount: hops}, nil
	case 3:
		id, err := ParseSearchID(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		record, ok := ParseFileRecord(fields[1])
		if !ok || fields[2] == "" {
			return nil, fmt.Errorf("%w: reply %q", ErrMalformedFrame, line)
		}
		return SearchReply{ID: id, Record: record, Location: fields[2]}, nil
	default:
		return nil, fmt.Errorf("%w: %d fields", ErrMalformedFrame, len(fields))
	}
}

// Decoder reads newline-delimited frames from a stream.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxFrameSize)
	return &Decoder{scanner: s}
}

// Decode returns the next frame. A frame that cannot be classified is
// returned as an error wrapping ErrMalformedFrame; the stream stays usable.
// io.EOF is returned once the peer closes the connection.
func (d *Decoder) Decode() (Message, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return ParseFrame(d.scanner.Text())
}
