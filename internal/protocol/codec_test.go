package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameShapes(t *testing.T) {
	id := SearchID{Origin: "10.0.0.1:5000", Keyword: "jazz", Seq: 3}

	tests := []struct {
		name     string
		line     string
		expected Message
	}{
		{"bare leaving", "leaving", Leaving{}},
		{"leaving with list", "leaving\t10.0.0.2:5000 10.0.0.3:5000 ", Leaving{Neighbors: []string{"10.0.0.2:5000", "10.0.0.3:5000"}}},
		{"hello", "hello\t10.0.0.9:5000", Hello{Addr: "10.0.0.9:5000"}},
		{"from", "from\t10.0.0.9:5000", From{Addr: "10.0.0.9:5000"}},
		{"file request", "song.txt", FileRequest{Name: "song.txt"}},
		{"file named hello", "hello", FileRequest{Name: "hello"}},
		{"search request", "10.0.0.1:5000 jazz 3\t7", SearchRequest{ID: id, HopCount: 7}},
		{"search reply", "10.0.0.1:5000 jazz 3\tsong.txt jazz blues\t10.0.0.4:5000", SearchReply{
			ID:       id,
			Record:   FileRecord{Name: "song.txt", Keywords: []string{"jazz", "blues"}},
			Location: "10.0.0.4:5000",
		}},
		{"trailing carriage return", "song.txt\r", FileRequest{Name: "song.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseFrame(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, msg)
		})
	}
}

func TestParseFrameMalformed(t *testing.T) {
	tests := []string{
		"",
		"not an id\t4",
		"10.0.0.1:5000 jazz x\t4",
		"10.0.0.1:5000 jazz 1\tfour",
		"10.0.0.1:5000 jazz 1\t\t10.0.0.4:5000",
		"a\tb\tc\td",
		"two words",
	}

	for _, line := range tests {
		_, err := ParseFrame(line)
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("ParseFrame(%q) error = %v, want ErrMalformedFrame", line, err)
		}
	}
}

func TestCodecFrameRoundTrip(t *testing.T) {
	codec := NewCodec()
	id := SearchID{Origin: "127.0.0.1:7000", Keyword: "notes", Seq: 0}

	msgs := []Message{
		SearchRequest{ID: id, HopCount: 16},
		SearchReply{ID: id, Record: FileRecord{Name: "notes.txt", Keywords: []string{"notes"}}, Location: "127.0.0.1:7001"},
		Leaving{Neighbors: []string{"127.0.0.1:7002"}},
		Leaving{},
		FileRequest{Name: "notes.txt"},
	}

	for _, msg := range msgs {
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, msg))
		require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))

		decoded, err := NewDecoder(&buf).Decode()
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestDecoderStream(t *testing.T) {
	input := "from\t127.0.0.1:7000\nbad\tframe\tx\ty\nleaving\n"
	dec := NewDecoder(strings.NewReader(input))

	msg, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, From{Addr: "127.0.0.1:7000"}, msg)

	_, err = dec.Decode()
	assert.ErrorIs(t, err, ErrMalformedFrame)

	msg, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, MsgLeaving, msg.Type())

	_, err = dec.Decode()
	assert.Equal(t, io.EOF, err)
}

func TestParseSearchID(t *testing.T) {
	id, err := ParseSearchID("10.1.1.1:5000 cats 12")
	require.NoError(t, err)
	assert.Equal(t, SearchID{Origin: "10.1.1.1:5000", Keyword: "cats", Seq: 12}, id)
	assert.Equal(t, "10.1.1.1:5000 cats 12", id.String())

	for _, bad := range []string{"", "a b", "a b c d", "a b -1", " b 1"} {
		_, err := ParseSearchID(bad)
		assert.ErrorIs(t, err, ErrInvalidSearchID, bad)
	}
}

func TestFileRecordMatches(t *testing.T) {
	rec, ok := ParseFileRecord("  Song.txt  Jazz blues ")
	require.True(t, ok)

	assert.Equal(t, "Song.txt Jazz blues", rec.String())
	assert.True(t, rec.Matches("jazz"))
	assert.True(t, rec.Matches("BLUES"))
	assert.True(t, rec.Matches("song.txt"))
	assert.False(t, rec.Matches("rock"))

	_, ok = ParseFileRecord("   ")
	assert.False(t, ok)
}

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		expected string
		msgType  MessageType
	}{
		{"FILE_REQUEST", MsgFileRequest},
		{"HELLO", MsgHello},
		{"LEAVING", MsgLeaving},
		{"SEARCH_REPLY", MsgSearchReply},
		{"SEARCH_REQUEST", MsgSearchRequest},
		{"UNKNOWN", MessageType(0xFF)},
	}

	for _, tt := range tests {
		if got := tt.msgType.String(); got != tt.expected {
			t.Errorf("%v.String() = %s, want %s", tt.msgType, got, tt.expected)
		}
	}
}

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
	}{
		{"10.0.0.1", "10.0.0.1:5000"},
		{"10.0.0.1:6000", "10.0.0.1:6000"},
		{"::1", "[::1]:5000"},
		{"node-a", "node-a:5000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeAddr(tt.addr, 5000))
	}
}
