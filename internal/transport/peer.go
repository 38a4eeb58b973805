package transport

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
)

// Peer is one end of a short-lived frame connection.
type Peer struct {
	codec     *protocol.Codec
	conn      net.Conn
	reader    *bufio.Reader
	decoder   *protocol.Decoder
	ioTimeout time.Duration
}

func NewPeer(conn net.Conn, ioTimeout time.Duration) *Peer {
	reader := bufio.NewReader(conn)
	return &Peer{
		codec:     protocol.NewCodec(),
		conn:      conn,
		reader:    reader,
		decoder:   protocol.NewDecoder(reader),
		ioTimeout: ioTimeout,
	}
}

func (p *Peer) Close() error {
	return p.conn.Close()
}

// Receive returns the next frame, or io.EOF once the remote side is done.
func (p *Peer) Receive() (protocol.Message, error) {
	if err := p.conn.SetReadDeadline(p.deadline()); err != nil {
		return nil, err
	}
	return p.decoder.Decode()
}

// Reader exposes the raw inbound stream. It must not be mixed with Receive.
func (p *Peer) Reader() io.Reader {
	return &deadlineReader{peer: p}
}

func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// RemoteHost is the remote IP without its ephemeral port.
func (p *Peer) RemoteHost() string {
	host, _, err := net.SplitHostPort(p.RemoteAddr())
	if err != nil {
		return p.RemoteAddr()
	}
	return host
}

func (p *Peer) Send(msgs ...protocol.Message) error {
	if err := p.conn.SetWriteDeadline(p.deadline()); err != nil {
		return err
	}
	w := bufio.NewWriter(p.conn)
	for _, msg := range msgs {
		if err := p.codec.Encode(w, msg); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Writer exposes the raw outbound stream with a fresh write deadline per call.
func (p *Peer) Writer() io.Writer {
	return &deadlineWriter{peer: p}
}

func (p *Peer) deadline() time.Time {
	if p.ioTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(p.ioTimeout)
}

type deadlineReader struct {
	peer *Peer
}

func (r *deadlineReader) Read(b []byte) (int, error) {
	if err := r.peer.conn.SetReadDeadline(r.peer.deadline()); err != nil {
		return 0, err
	}
	return r.peer.reader.Read(b)
}

type deadlineWriter struct {
	peer *Peer
}

func (w *deadlineWriter) Write(b []byte) (int, error) {
	if err := w.peer.conn.SetWriteDeadline(w.peer.deadline()); err != nil {
		return 0, err
	}
	return w.peer.conn.Write(b)
}
