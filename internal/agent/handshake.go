// ABOUTME: Builds the signed "connect" handshake sent on every new gateway socket
// ABOUTME: Signature payload layout is shared with the gateway and must not drift

package agent

import (
	"strconv"
	"strings"
	"time"

	"github.com/2389/trendclaw/internal/identity"
)

// ProtocolVersion is the only wire protocol version this client speaks.
const ProtocolVersion = 3

// handshakeMethod is the method name of the first request on every socket.
const handshakeMethod = "connect"

// ClientInfo identifies this process to the gateway.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"`
}

// DefaultClientInfo is the identity the backend presents on handshake.
func DefaultClientInfo() ClientInfo {
	return ClientInfo{
		ID:          "gateway-client",
		DisplayName: "TrendClaw Backend",
		Version:     "1.0.0",
		Platform:    "linux",
		Mode:        "backend",
	}
}

// ConnectParams is the params object of the "connect" request.
type ConnectParams struct {
	MinProtocol int         `json:"minProtocol"`
	MaxProtocol int         `json:"maxProtocol"`
	Client      ClientInfo  `json:"client"`
	Caps        []string    `json:"caps"`
	Role        string      `json:"role"`
	Scopes      []string    `json:"scopes"`
	Auth        *AuthParams `json:"auth,omitempty"`
	Device      DeviceProof `json:"device"`
}

// AuthParams carries the optional shared gateway token.
type AuthParams struct {
	Token string `json:"token"`
}

// DeviceProof proves possession of the device private key.
type DeviceProof struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	SignedAt  int64  `json:"signedAt"`
}

// SignaturePayload returns the exact string signed during the handshake:
//
//	v1|deviceId|clientId|clientMode|role|scope1,scope2|signedAtMs|token
//
// The token field is empty when no token is configured.
func SignaturePayload(deviceID, clientID, clientMode, role string, scopes []string, signedAtMs int64, token string) string {
	return strings.Join([]string{
		"v1",
		deviceID,
		clientID,
		clientMode,
		role,
		strings.Join(scopes, ","),
		strconv.FormatInt(signedAtMs, 10),
		token,
	}, "|")
}

// buildConnectParams signs a fresh handshake for id at now.
func buildConnectParams(id *identity.Identity, info ClientInfo, role string, scopes []string, token string, now time.Time) ConnectParams {
	signedAt := now.UnixMilli()
	payload := SignaturePayload(id.DeviceID, info.ID, info.Mode, role, scopes, signedAt, token)

	params := ConnectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client:      info,
		Caps:        []string{},
		Role:        role,
		Scopes:      scopes,
		Device: DeviceProof{
			ID:        id.DeviceID,
			PublicKey: id.PublicKeyRaw(),
			Signature: id.Sign(payload),
			SignedAt:  signedAt,
		},
	}
	if token != "" {
		params.Auth = &AuthParams{Token: token}
	}
	return params
}
