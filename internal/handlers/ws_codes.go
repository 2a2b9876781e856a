// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the room socket. Each one maps to a
// distinct screen on the client.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // No identity, or the auth token was invalid or expired.
	ProfileRequiredError  websocket.StatusCode = 3002 // The user has not created a profile yet.
	InvalidRoomCodeError  websocket.StatusCode = 3003 // No session exists for the room code.
	SessionExpiredError   websocket.StatusCode = 3004 // The session lifetime has passed.
)
