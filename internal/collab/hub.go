package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
	"github.com/inamate/canvasflow/internal/typeid"
)

const opTimeout = 30 * time.Second

// SceneSource resolves the live engine of a scene.
type SceneSource interface {
	Engine(sceneID string) (*engine.Engine, error)
}

type Room struct {
	sceneID  string
	clients  map[string]*Client // clientID -> client
	presence *presenceSet
	state    *SceneState
}

func NewRoom(sceneID string, eng *engine.Engine) *Room {
	return &Room{
		sceneID:  sceneID,
		clients:  make(map[string]*Client),
		presence: newPresenceSet(),
		state:    NewSceneState(eng),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sceneID -> room
	scenes     SceneSource
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(scenes SceneSource) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		scenes:     scenes,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for id, room := range h.rooms {
			for _, c := range room.clients {
				c.closeSend()
			}
			delete(h.rooms, id)
		}
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	eng, err := h.scenes.Engine(client.SceneID)
	if err != nil {
		client.Send(errorMessage(err))
		client.closeSend()
		slog.Warn("client rejected", "user", client.UserID, "scene", client.SceneID, "error", err)
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok {
		room = NewRoom(client.SceneID, eng)
		h.rooms[client.SceneID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:  client.ClientID,
		SceneID:   client.SceneID,
		ServerSeq: room.state.ServerSeq(),
	})
	client.Send(&Message{Type: TypeWelcome, SceneID: client.SceneID, Payload: welcome})

	syncPayload, _ := json.Marshal(SyncPayload{
		Objects: json.RawMessage(eng.GetObjects()),
		Chunks:  json.RawMessage(eng.GetChunks()),
	})
	client.Send(&Message{Type: TypeSceneSync, SceneID: client.SceneID, Payload: syncPayload})

	if stateMsg, err := room.presence.stateMessage(); err != nil {
		slog.Error("presence state", "error", err)
	} else {
		client.Send(stateMsg)
	}

	if cmds, seq := eng.Frame(); seq > 0 {
		client.Send(frameMessage(client.SceneID, cmds, seq))
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.SceneID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "scene", client.SceneID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.remove(client.UserID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.SceneID)
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.SceneID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "scene", client.SceneID)
}

// BroadcastFrame sends a painted frame to every client watching the scene.
func (h *Hub) BroadcastFrame(sceneID string, cmds []surface.DrawCommand, seq uint64) {
	if !h.hasRoom(sceneID) {
		return
	}
	h.broadcastToRoom(sceneID, frameMessage(sceneID, cmds, seq), "")
}

// CloseScene disconnects the clients of a deleted scene.
func (h *Hub) CloseScene(sceneID string) {
	h.mu.Lock()
	room, ok := h.rooms[sceneID]
	delete(h.rooms, sceneID)
	h.mu.Unlock()
	if !ok {
		return
	}
	for _, c := range room.clients {
		c.Send(errorMessage(errors.New("scene deleted")))
		c.closeSend()
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(ctx, sender, msg)
	case TypeInputEvent:
		h.handleInputEvent(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(errorMessage(errors.New("unknown message type: " + msg.Type)))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}

	hovered, err := hoverTargets(room.state.engine.Scene(), presence.Cursor)
	if err != nil {
		slog.Debug("hover hit test failed", "error", err, "scene", sender.SceneID)
	}
	presence.Hovered = hovered

	room.presence.set(sender.UserID, &presence)

	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}
	h.broadcastToRoom(sender.SceneID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(ctx context.Context, sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op payload", "error", err, "user", sender.UserID)
		sender.Send(errorMessage(errors.Join(document.ErrInvalidArgumentShape, err)))
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	room, ok := h.room(sender.SceneID)
	if !ok {
		sender.Send(nackMessage(op.ID, errors.New("scene not found")))
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	seq, err := room.state.ApplyOperation(opCtx, op)
	if err != nil {
		slog.Debug("operation rejected", "op", op.ID, "type", op.Type, "error", err)
		sender.Send(nackMessage(op.ID, err))
		return
	}

	ack, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
	})
	sender.Send(&Message{Type: TypeOpAck, Seq: seq, Payload: ack})

	broadcast, _ := json.Marshal(OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	h.broadcastToRoom(sender.SceneID, &Message{
		Type:    TypeOpBroadcast,
		UserID:  sender.UserID,
		Seq:     seq,
		Payload: broadcast,
	}, sender.ClientID)
}

func (h *Hub) handleInputEvent(sender *Client, msg *Message) {
	var ev engine.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		sender.Send(errorMessage(errors.Join(document.ErrInvalidArgumentShape, err)))
		return
	}

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}

	hits, err := room.state.engine.Scene().Dispatch(&ev)
	if err != nil {
		sender.Send(errorMessage(err))
		return
	}

	payload, _ := json.Marshal(InputHitsPayload{Event: ev.Name, Objects: document.Refs(hits)})
	sender.Send(&Message{Type: TypeInputHits, Payload: payload})
}

func (h *Hub) room(sceneID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sceneID]
	return room, ok
}

func (h *Hub) hasRoom(sceneID string) bool {
	_, ok := h.room(sceneID)
	return ok
}

func (h *Hub) broadcastToRoom(sceneID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func frameMessage(sceneID string, cmds []surface.DrawCommand, seq uint64) *Message {
	if cmds == nil {
		cmds = []surface.DrawCommand{}
	}
	payload, _ := json.Marshal(FramePayload{Seq: seq, Commands: cmds})
	return &Message{Type: TypeSceneFrame, SceneID: sceneID, Payload: payload}
}

func nackMessage(opID string, err error) *Message {
	payload, _ := json.Marshal(OperationNackPayload{
		OperationID: opID,
		Reason:      err.Error(),
		Code:        document.Code(err),
	})
	return &Message{Type: TypeOpNack, Payload: payload}
}

func errorMessage(err error) *Message {
	payload, _ := json.Marshal(ErrorPayload{Reason: err.Error(), Code: document.Code(err)})
	return &Message{Type: TypeError, Payload: payload}
}
