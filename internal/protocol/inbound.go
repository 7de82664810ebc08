// Package protocol defines the JSON envelopes exchanged over the signal socket.
// Every envelope is an object with a "type" tag next to the variant's fields.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed    = errors.New("malformed envelope")
	ErrUnknownType  = errors.New("unknown envelope type")
	ErrMissingField = errors.New("missing field")
	ErrInvalidField = errors.New("invalid field")
)

// Inbound is the closed set of client requests. Only types in this package
// implement it.
type Inbound interface {
	Type() string
	inbound()
}

type Identify struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type JoinRoom struct {
	RoomID string `json:"room_id"`
}

type LeaveRoom struct{}

type ChatMessage struct {
	Text string `json:"text"`
}

type EditMessage struct {
	MessageID string `json:"message_id"`
	NewText   string `json:"new_text"`
}

type DeleteMessage struct {
	MessageID string `json:"message_id"`
}

type MessageRead struct {
	ChannelID string `json:"channel_id"`
	Timestamp uint64 `json:"timestamp"`
}

// Offer, Answer and IceCandidate are forwarded to every connection bound to Target.
type Offer struct {
	Target string `json:"target"`
	SDP    string `json:"sdp"`
	Sender string `json:"sender"`
}

type Answer struct {
	Target string `json:"target"`
	SDP    string `json:"sdp"`
	Sender string `json:"sender"`
}

type IceCandidate struct {
	Target    string `json:"target"`
	Candidate string `json:"candidate"`
	Sender    string `json:"sender"`
}

// MarketPurchase debits UserID as given in the payload, not the caller's identity.
type MarketPurchase struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	Price  uint64 `json:"price"`
}

func (*Identify) Type() string       { return "Identify" }
func (*JoinRoom) Type() string       { return "JoinRoom" }
func (*LeaveRoom) Type() string      { return "LeaveRoom" }
func (*ChatMessage) Type() string    { return "ChatMessage" }
func (*EditMessage) Type() string    { return "EditMessage" }
func (*DeleteMessage) Type() string  { return "DeleteMessage" }
func (*MessageRead) Type() string    { return "MessageRead" }
func (*Offer) Type() string          { return "Offer" }
func (*Answer) Type() string         { return "Answer" }
func (*IceCandidate) Type() string   { return "IceCandidate" }
func (*MarketPurchase) Type() string { return "MarketPurchase" }

func (*Identify) inbound()       {}
func (*JoinRoom) inbound()       {}
func (*LeaveRoom) inbound()      {}
func (*ChatMessage) inbound()    {}
func (*EditMessage) inbound()    {}
func (*DeleteMessage) inbound()  {}
func (*MessageRead) inbound()    {}
func (*Offer) inbound()          {}
func (*Answer) inbound()         {}
func (*IceCandidate) inbound()   {}
func (*MarketPurchase) inbound() {}

type variant struct {
	new      func() Inbound
	required []string
}

var variants = map[string]variant{
	"Identify":       {func() Inbound { return new(Identify) }, []string{"user_id", "name", "avatar"}},
	"JoinRoom":       {func() Inbound { return new(JoinRoom) }, []string{"room_id"}},
	"LeaveRoom":      {func() Inbound { return new(LeaveRoom) }, nil},
	"ChatMessage":    {func() Inbound { return new(ChatMessage) }, []string{"text"}},
	"EditMessage":    {func() Inbound { return new(EditMessage) }, []string{"message_id", "new_text"}},
	"DeleteMessage":  {func() Inbound { return new(DeleteMessage) }, []string{"message_id"}},
	"MessageRead":    {func() Inbound { return new(MessageRead) }, []string{"channel_id", "timestamp"}},
	"Offer":          {func() Inbound { return new(Offer) }, []string{"target", "sdp", "sender"}},
	"Answer":         {func() Inbound { return new(Answer) }, []string{"target", "sdp", "sender"}},
	"IceCandidate":   {func() Inbound { return new(IceCandidate) }, []string{"target", "candidate", "sender"}},
	"MarketPurchase": {func() Inbound { return new(MarketPurchase) }, []string{"user_id", "item_id", "price"}},
}

// Decode parses one inbound envelope. A missing or null required field is an
// error, as is a field of the wrong JSON type.
func Decode(data []byte) (Inbound, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rawType, ok := fields["type"]
	if !ok {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrMalformed, err)
	}
	v, ok := variants[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	for _, name := range v.required {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingField, typ, name)
		}
	}
	msg := v.new()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, typ, err)
	}
	if j, ok := msg.(*JoinRoom); ok && j.RoomID == "" {
		return nil, fmt.Errorf("%w: JoinRoom.room_id is empty", ErrInvalidField)
	}
	return msg, nil
}
