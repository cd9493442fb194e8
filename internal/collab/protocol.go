package collab

import (
	"encoding/json"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
)

type Message struct {
	Type     string          `json:"type"`
	SceneID  string          `json:"sceneId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos     `json:"cursor,omitempty"`
	Hovered     []document.Ref `json:"hovered,omitempty"`
	DisplayName string         `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	SceneID   string `json:"sceneId"`
	ServerSeq int64  `json:"serverSeq"`
}

// SyncPayload carries the scene content a client needs to mirror the store.
type SyncPayload struct {
	Objects json.RawMessage `json:"objects"`
	Chunks  json.RawMessage `json:"chunks"`
}

type FramePayload struct {
	Seq      uint64                `json:"seq"`
	Commands []surface.DrawCommand `json:"commands"`
}

type InputHitsPayload struct {
	Event   string         `json:"event"`
	Objects []document.Ref `json:"objects"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
	Code   int    `json:"code,omitempty"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Scene sync
	TypeSceneSync  = "scene.sync"
	TypeSceneFrame = "scene.frame"

	// Input
	TypeInputEvent = "input.event"
	TypeInputHits  = "input.hits"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// --- Operation Types ---

// Operation is one scene mutation submitted by a client.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`
	ObjectID  string `json:"objectId,omitempty"`

	// For object.set (one record) and object.setMany (a list)
	Object  json.RawMessage `json:"object,omitempty"`
	Objects json.RawMessage `json:"objects,omitempty"`

	// For object.update
	Patch json.RawMessage `json:"patch,omitempty"`

	// For object.move
	X    float64     `json:"x,omitempty"`
	Y    float64     `json:"y,omitempty"`
	Mode engine.Mode `json:"mode,omitempty"`

	// For chunk.set / chunk.clear
	Chunk   json.RawMessage `json:"chunk,omitempty"`
	ChunkID string          `json:"chunkId,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages. Code is the
// scene error code when the failure carries one.
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
	Code        int    `json:"code,omitempty"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}
