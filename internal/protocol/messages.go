// Package protocol defines the JSON frames exchanged between the sync client
// and the room relay. One message per websocket text frame.
//
// The relay never looks inside Message: it is an opaque string that only the
// drawing side decodes.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the "type" discriminator of a frame.
type MessageType string

const (
	TypeJoinRoom  MessageType = "join_room"
	TypeLeaveRoom MessageType = "leave_room"
	TypeChat      MessageType = "chat"
)

var ErrMalformed = errors.New("malformed frame")

// ClientMessage is any frame a client sends.
type ClientMessage struct {
	Type    MessageType `json:"type"`
	RoomID  string      `json:"roomId"`
	Message string      `json:"message,omitempty"`
}

// ServerMessage is the broadcast frame delivered to room members.
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	RoomID  string      `json:"roomId"`
}

func JoinRoom(roomID string) ClientMessage {
	return ClientMessage{Type: TypeJoinRoom, RoomID: roomID}
}

func LeaveRoom(roomID string) ClientMessage {
	return ClientMessage{Type: TypeLeaveRoom, RoomID: roomID}
}

func Chat(roomID, message string) ClientMessage {
	return ClientMessage{Type: TypeChat, RoomID: roomID, Message: message}
}

// ParseClientMessage decodes a client frame. An unknown type is malformed;
// an empty roomId is left for the caller to judge.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch m.Type {
	case TypeJoinRoom, TypeLeaveRoom, TypeChat:
		return m, nil
	}
	return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, m.Type)
}

// ParseServerMessage decodes a relay broadcast frame.
func ParseServerMessage(data []byte) (ServerMessage, error) {
	var m ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type == "" {
		return ServerMessage{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return m, nil
}

// Encode marshals any frame.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}
