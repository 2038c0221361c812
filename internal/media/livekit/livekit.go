package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/sessionly/liveroom-server/internal/media"
)

// Engine implements media.Engine using LiveKit as the media backend.
// LiveKit creates rooms on demand when the first participant connects, so no
// server-side room provisioning is needed here.
type Engine struct {
	apiKey    string
	apiSecret string
	wsURL     string
}

// New creates a new LiveKit engine.
func New(apiKey, apiSecret, wsURL string) *Engine {
	return &Engine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
	}
}

// JoinToken creates join credentials for a participant in the given channel.
func (e *Engine) JoinToken(_ context.Context, channel, identity, displayName string, host bool) (*media.JoinInfo, error) {
	roomName := fmt.Sprintf("liveroom-%s", channel)

	canPublish := true
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	grant.SetCanPublish(canPublish)
	grant.SetCanPublishData(true)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(displayName).
		SetValidFor(4 * time.Hour)
	if host {
		at.SetMetadata("role=host")
	}

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &media.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: roomName,
		Identity: identity,
	}, nil
}

// Ensure Engine implements media.Engine.
var _ media.Engine = (*Engine)(nil)
