// Package agent maintains the connection to the external agent gateway.
//
// # Overview
//
// The gateway schedules recurring agent jobs for us. The backend talks to it
// over a single WebSocket carrying JSON frames and reaches it through one
// Client per process.
//
// # Client
//
// The Client owns the socket and its lifecycle:
//
//	c := agent.New(agent.Config{URL: url, Token: token, Identity: id}, logger)
//	c.Start(ctx)
//
// Key operations:
//
//   - Connect(ctx): Dial and complete the handshake
//   - Start(ctx): Connect, then keep reconnecting until ctx is done
//   - Request(ctx, method, params): Issue a call and wait for its response
//   - IsConnected(): Report whether the handshake has completed
//   - Disconnect(): Tear down permanently
//
// # Wire Protocol
//
// Three frame types share the socket:
//
//	{"type":"req","id":"...","method":"cron.add","params":{...}}
//	{"type":"res","id":"...","ok":true,"result":{...}}
//	{"type":"evt","event":"..."}
//
// Event frames are ignored.
//
// # Handshake
//
// The first request on every socket is "connect". Its params carry the
// protocol bounds, the client descriptor, role and scopes, the optional
// shared token, and a device proof. The proof signs:
//
//	v1|deviceId|clientId|clientMode|role|scopes|signedAtMs|token
//
// so a captured signature cannot be replayed with a different role or scope.
// Requests fail with ErrNotConnected until the handshake succeeds.
//
// # Request/Response Correlation
//
// Each request gets a fresh UUID and an entry in the pending set with its
// own timeout (30s by default). Response frames are matched by id only, so
// concurrent requests may complete in any order. A response that arrives
// after its timeout is dropped.
//
// # Reconnection
//
// Every socket close marks the client disconnected, rejects in-flight
// requests with ErrConnectionClosed, and arms a single reconnect timer
// (5s by default). Further closes while the timer is armed are coalesced.
// Failed attempts re-arm the same fixed delay forever. There is no backoff.
//
// # Thread Safety
//
// Client is safe for concurrent use. State transitions happen under one
// mutex; socket writes are serialized by a second.
package agent
