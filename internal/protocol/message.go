package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrInvalidSearchID = errors.New("invalid search identifier")
)

type Message interface {
	Type() MessageType
	Frame() string
}

// SearchID names one search attempt. It is namespaced by the originator's
// address so it is unique across the overlay.
type SearchID struct {
	Origin  string
	Keyword string
	Seq     int
}

func (id SearchID) String() string {
	return id.Origin + IDSeparator + id.Keyword + IDSeparator + strconv.Itoa(id.Seq)
}

func ParseSearchID(s string) (SearchID, error) {
	parts := strings.Split(s, IDSeparator)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return SearchID{}, fmt.Errorf("%w: %q", ErrInvalidSearchID, s)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 0 {
		return SearchID{}, fmt.Errorf("%w: bad sequence in %q", ErrInvalidSearchID, s)
	}
	return SearchID{Origin: parts[0], Keyword: parts[1], Seq: seq}, nil
}

// FileRecord is one catalog line: a file name followed by its keywords.
type FileRecord struct {
	Name     string
	Keywords []string
}

func (r FileRecord) String() string {
	if len(r.Keywords) == 0 {
		return r.Name
	}
	return r.Name + " " + strings.Join(r.Keywords, " ")
}

// Matches reports whether keyword equals, ignoring case, the file name or
// any of its keywords.
func (r FileRecord) Matches(keyword string) bool {
	if strings.EqualFold(r.Name, keyword) {
		return true
	}
	for _, k := range r.Keywords {
		if strings.EqualFold(k, keyword) {
			return true
		}
	}
	return false
}

func ParseFileRecord(line string) (FileRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return FileRecord{}, false
	}
	record := FileRecord{Name: fields[0]}
	if len(fields) > 1 {
		record.Keywords = fields[1:]
	}
	return record, true
}

type FileRequest struct {
	Name string
}

func (FileRequest) Type() MessageType { return MsgFileRequest }
func (m FileRequest) Frame() string   { return m.Name }

// From identifies the sender of the frames that follow on a connection.
type From struct {
	Addr string
}

func (From) Type() MessageType { return MsgFrom }
func (m From) Frame() string   { return tokenFrom + FieldSeparator + m.Addr }

// Hello asks the receiver to add Addr to its neighbor table.
type Hello struct {
	Addr string
}

func (Hello) Type() MessageType { return MsgHello }
func (m Hello) Frame() string   { return tokenHello + FieldSeparator + m.Addr }

type Leaving struct {
	Neighbors []string
}

func (Leaving) Type() MessageType { return MsgLeaving }

func (m Leaving) Frame() string {
	if len(m.Neighbors) == 0 {
		return tokenLeaving
	}
	return tokenLeaving + FieldSeparator + strings.Join(m.Neighbors, " ")
}

type SearchReply struct {
	ID       SearchID
	Record   FileRecord
	Location string
}

func (SearchReply) Type() MessageType { return MsgSearchReply }

func (m SearchReply) Frame() string {
	return m.ID.String() + FieldSeparator + m.Record.String() + FieldSeparator + m.Location
}

type SearchRequest struct {
	ID       SearchID
	HopCount int
}

func (SearchRequest) Type() MessageType { return MsgSearchRequest }

func (m SearchRequest) Frame() string {
	return m.ID.String() + FieldSeparator + strconv.Itoa(m.HopCount)
}
