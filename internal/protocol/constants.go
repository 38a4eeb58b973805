package protocol

const (
	// MaxHopCount bounds both the search retry schedule and ledger retention.
	MaxHopCount = 16

	FieldSeparator = "\t"
	IDSeparator    = " "

	EndOfFile = "END_OF_FILE"

	tokenFrom    = "from"
	tokenHello   = "hello"
	tokenLeaving = "leaving"
)

type MessageType uint8

const (
	MsgUnknown MessageType = iota
	MsgFileRequest
	MsgFrom
	MsgHello
	MsgLeaving
	MsgSearchReply
	MsgSearchRequest
)

func (t MessageType) String() string {
	switch t {
	case MsgFileRequest:
		return "FILE_REQUEST"
	case MsgFrom:
		return "FROM"
	case MsgHello:
		return "HELLO"
	case MsgLeaving:
		return "LEAVING"
	case MsgSearchReply:
		return "SEARCH_REPLY"
	case MsgSearchRequest:
		return "SEARCH_REQUEST"
	default:
		return "UNKNOWN"
	}
}
