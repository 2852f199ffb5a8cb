package notifications

import (
	"context"
	"encoding/json"
	"fmt"
)

// Frame types pushed over the websocket.
const (
	FrameNotification = "notification"
	FrameChatMessage  = "chat_message"
)

// Envelope is the frame a websocket client receives.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RoomMessage travels on a chat room channel. Recipients are the room members
// at publish time; subscribers deliver Envelope to each of them.
type RoomMessage struct {
	Recipients []uint   `json:"recipients"`
	Envelope   Envelope `json:"envelope"`
}

func newEnvelope(frameType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", frameType, err)
	}
	return Envelope{Type: frameType, Payload: raw}, nil
}

// PublishUserEvent wraps payload in an Envelope and publishes it to userID.
func (n *Notifier) PublishUserEvent(ctx context.Context, userID uint, frameType string, payload any) error {
	env, err := newEnvelope(frameType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return n.PublishUser(ctx, userID, string(data))
}

// PublishRoomEvent publishes payload to a room channel for delivery to recipients.
func (n *Notifier) PublishRoomEvent(ctx context.Context, roomID uint, recipients []uint, frameType string, payload any) error {
	env, err := newEnvelope(frameType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(RoomMessage{Recipients: recipients, Envelope: env})
	if err != nil {
		return fmt.Errorf("marshal room message: %w", err)
	}
	return n.PublishChatMessage(ctx, roomID, string(data))
}
