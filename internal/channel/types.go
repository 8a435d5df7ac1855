package channel

import "strings"

// WeChat message types carried in InboundMessage.MsgType.
const (
	MsgTypeText = 1
	MsgTypeApp  = 49
)

// InboundMessage is one chat event as delivered by the gateway.
type InboundMessage struct {
	MsgID      int64  `json:"MsgId"`
	NewMsgID   int64  `json:"NewMsgId"`
	MsgType    int    `json:"MsgType"`
	Content    string `json:"Content"`
	FromWxid   string `json:"FromWxid"`
	SenderWxid string `json:"SenderWxid"`
	IsGroup    bool   `json:"IsGroup"`
}

// ReplyTarget returns the chat a reply should go to: the group for group
// messages, the sender otherwise.
func (m InboundMessage) ReplyTarget() string {
	return strings.TrimSpace(m.FromWxid)
}

// Sender returns the wxid of the person who wrote the message.
func (m InboundMessage) Sender() string {
	if s := strings.TrimSpace(m.SenderWxid); s != "" {
		return s
	}
	return strings.TrimSpace(m.FromWxid)
}

// DedupKey identifies a delivery; NewMsgId is unique per message, MsgId is the
// fallback for gateways that omit it.
func (m InboundMessage) DedupKey() string {
	if m.NewMsgID != 0 {
		return "new:" + itoa(m.NewMsgID)
	}
	if m.MsgID != 0 {
		return "msg:" + itoa(m.MsgID)
	}
	return ""
}

// Verdict tells the dispatcher whether later handlers should see a message.
type Verdict int

const (
	// Continue passes the message to the next handler.
	Continue Verdict = iota
	// Stop marks the message as consumed.
	Stop
)

func (v Verdict) String() string {
	if v == Stop {
		return "stop"
	}
	return "continue"
}
