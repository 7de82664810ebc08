package protocol

import (
	"encoding/json"
	"fmt"
)

// Outbound is any server-to-client envelope.
type Outbound interface {
	Type() string
}

type Identified struct {
	Success bool `json:"success"`
}

type RoomUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type RoomUsers struct {
	Users []RoomUser `json:"users"`
}

type UserJoined struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type UserLeft struct {
	UserID string `json:"user_id"`
}

// ChatBroadcast is the server side of ChatMessage.
type ChatBroadcast struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Text      string `json:"text"`
	Timestamp uint64 `json:"timestamp"`
	ChannelID string `json:"channel_id"`
}

type OfferRelay struct {
	Sender string `json:"sender"`
	SDP    string `json:"sdp"`
}

type AnswerRelay struct {
	Sender string `json:"sender"`
	SDP    string `json:"sdp"`
}

type CandidateRelay struct {
	Sender    string `json:"sender"`
	Candidate string `json:"candidate"`
}

type PurchaseResult struct {
	Success    bool   `json:"success"`
	NewBalance uint64 `json:"new_balance"`
	Message    string `json:"message"`
}

type ErrorReply struct {
	Message string `json:"message"`
}

type VoiceState struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	RoomID string `json:"room_id"`
}

type GlobalVoiceState struct {
	States []VoiceState `json:"states"`
}

// VoiceStateUpdate omits room_id when the user left voice entirely.
type VoiceStateUpdate struct {
	UserID string  `json:"user_id"`
	Name   string  `json:"name"`
	Avatar string  `json:"avatar"`
	RoomID *string `json:"room_id,omitempty"`
}

type MessageEdited struct {
	MessageID string `json:"message_id"`
	NewText   string `json:"new_text"`
	ChannelID string `json:"channel_id"`
}

type MessageDeleted struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// ReadReceipt is the server side of MessageRead.
type ReadReceipt struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Timestamp uint64 `json:"timestamp"`
}

func (Identified) Type() string       { return "Identified" }
func (RoomUsers) Type() string        { return "RoomUsers" }
func (UserJoined) Type() string       { return "UserJoined" }
func (UserLeft) Type() string         { return "UserLeft" }
func (ChatBroadcast) Type() string    { return "ChatMessage" }
func (OfferRelay) Type() string       { return "Offer" }
func (AnswerRelay) Type() string      { return "Answer" }
func (CandidateRelay) Type() string   { return "IceCandidate" }
func (PurchaseResult) Type() string   { return "PurchaseResult" }
func (ErrorReply) Type() string       { return "Error" }
func (GlobalVoiceState) Type() string { return "GlobalVoiceState" }
func (VoiceStateUpdate) Type() string { return "VoiceStateUpdate" }
func (MessageEdited) Type() string    { return "MessageEdited" }
func (MessageDeleted) Type() string   { return "MessageDeleted" }
func (ReadReceipt) Type() string      { return "MessageRead" }

// Encode marshals o and puts its "type" tag first.
func Encode(o Outbound) ([]byte, error) {
	body, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", o.Type(), err)
	}
	tag, err := json.Marshal(o.Type())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", o.Type(), err)
	}
	out := make([]byte, 0, len(body)+len(tag)+9)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}
