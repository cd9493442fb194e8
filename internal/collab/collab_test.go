package collab

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
)

type fakeScenes map[string]*engine.Engine

func (f fakeScenes) Engine(id string) (*engine.Engine, error) {
	eng, ok := f[id]
	if !ok {
		return nil, document.ErrUnknownIdentifier
	}
	return eng, nil
}

func newTestHub(t *testing.T) (*Hub, *engine.Engine) {
	t.Helper()
	fonts, err := surface.NewFonts()
	require.NoError(t, err)
	eng, err := engine.NewEngine(surface.Canvas{Key: "s1", Width: 100, Height: 100}, fonts)
	require.NoError(t, err)
	return NewHub(fakeScenes{"s1": eng}), eng
}

func join(h *Hub, user, clientID string) *Client {
	c := NewClient(h, nil, user, user+" name", "s1", clientID)
	h.addClient(c)
	return c
}

// drain returns every message currently queued for c.
func drain(t *testing.T, c *Client) []*Message {
	t.Helper()
	var out []*Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, &msg)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func types(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func submit(t *testing.T, op Operation) *Message {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	require.NoError(t, err)
	return &Message{Type: TypeOpSubmit, Payload: payload}
}

func TestJoinSequence(t *testing.T) {
	h, eng := newTestHub(t)
	_, err := eng.SetObject(context.Background(), `{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 20, "height": 20}`)
	require.NoError(t, err)

	a := join(h, "alice", "ca")
	msgs := drain(t, a)
	require.Equal(t, []string{TypeWelcome, TypeSceneSync, TypePresenceState, TypeSceneFrame}, types(msgs))

	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &welcome))
	assert.Equal(t, "ca", welcome.ClientID)
	assert.Equal(t, "s1", welcome.SceneID)

	var sync SyncPayload
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &sync))
	assert.JSONEq(t, `[]`, string(sync.Chunks))
	var objs []map[string]any
	require.NoError(t, json.Unmarshal(sync.Objects, &objs))
	require.Len(t, objs, 1)

	b := join(h, "bob", "cb")
	drain(t, b)
	joined := drain(t, a)
	require.Equal(t, []string{TypePresenceJoin}, types(joined))
	assert.Equal(t, "bob", joined[0].UserID)
}

func TestUnknownSceneRejected(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "eve", "Eve", "missing", "ce")
	h.addClient(c)

	msgs := drain(t, c)
	require.Equal(t, []string{TypeError}, types(msgs))
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
	assert.Equal(t, 106, p.Code)
	assert.False(t, h.hasRoom("missing"))
}

func TestOperationAckAndBroadcast(t *testing.T) {
	h, eng := newTestHub(t)
	a := join(h, "alice", "ca")
	b := join(h, "bob", "cb")
	drain(t, a)
	drain(t, b)

	op := Operation{ID: "op1", Type: "object.set", Object: json.RawMessage(`{"id": 7, "type": "circle", "x": 50, "y": 50, "width": 10, "height": 10}`)}
	h.handleMessage(context.Background(), a, submit(t, op))

	acks := drain(t, a)
	require.Equal(t, []string{TypeOpAck}, types(acks))
	var ack OperationAckPayload
	require.NoError(t, json.Unmarshal(acks[0].Payload, &ack))
	assert.Equal(t, "op1", ack.OperationID)
	assert.Equal(t, int64(1), ack.ServerSeq)

	seen := drain(t, b)
	require.Equal(t, []string{TypeOpBroadcast}, types(seen))
	var bc OperationBroadcastPayload
	require.NoError(t, json.Unmarshal(seen[0].Payload, &bc))
	assert.Equal(t, "alice", bc.UserID)
	assert.Equal(t, "object.set", bc.Operation.Type)

	_, err := eng.GetObject("7")
	require.NoError(t, err)

	move := Operation{ID: "op2", Type: "object.move", ObjectID: "7", X: 5, Y: 0, Mode: engine.Mode("relative")}
	h.handleMessage(context.Background(), a, submit(t, move))
	acks = drain(t, a)
	require.Equal(t, []string{TypeOpAck}, types(acks))
	require.NoError(t, json.Unmarshal(acks[0].Payload, &ack))
	assert.Equal(t, int64(2), ack.ServerSeq)
	o, err := eng.Scene().GetObject("7")
	require.NoError(t, err)
	assert.Equal(t, 55.0, *o.X)

	// a move without a mode sets the position
	h.handleMessage(context.Background(), a, submit(t, Operation{ID: "op3", Type: "object.move", ObjectID: "7", X: 5, Y: 6}))
	require.Equal(t, []string{TypeOpAck}, types(drain(t, a)))
	o, err = eng.Scene().GetObject("7")
	require.NoError(t, err)
	assert.Equal(t, 5.0, *o.X)
	assert.Equal(t, 6.0, *o.Y)

	h.handleMessage(context.Background(), a, submit(t, Operation{Type: "scene.clear"}))
	acks = drain(t, a)
	require.Equal(t, []string{TypeOpAck}, types(acks))
	require.NoError(t, json.Unmarshal(acks[0].Payload, &ack))
	assert.True(t, strings.HasPrefix(ack.OperationID, "op_"))
}

func TestOperationNack(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(h, "alice", "ca")
	b := join(h, "bob", "cb")
	drain(t, a)
	drain(t, b)

	tests := []struct {
		name string
		op   Operation
		code int
	}{
		{"unknown object", Operation{ID: "x1", Type: "object.update", ObjectID: "404", Patch: json.RawMessage(`{"x": 1}`)}, 106},
		{"missing record", Operation{ID: "x2", Type: "object.set"}, document.Code(document.ErrInvalidArgumentShape)},
		{"unknown type", Operation{ID: "x3", Type: "object.explode"}, 0},
		{"unknown object type", Operation{ID: "x4", Type: "object.set", Object: json.RawMessage(`{"id": 9, "type": "hexagon"}`)}, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.handleMessage(context.Background(), a, submit(t, tt.op))
			msgs := drain(t, a)
			require.Equal(t, []string{TypeOpNack}, types(msgs))
			var nack OperationNackPayload
			require.NoError(t, json.Unmarshal(msgs[0].Payload, &nack))
			assert.Equal(t, tt.op.ID, nack.OperationID)
			assert.Equal(t, tt.code, nack.Code)
			assert.NotEmpty(t, nack.Reason)
		})
	}
	assert.Empty(t, drain(t, b))
	assert.Equal(t, int64(0), h.rooms["s1"].state.ServerSeq())
}

func TestInputEventHits(t *testing.T) {
	h, eng := newTestHub(t)
	ctx := context.Background()
	require.NoError(t, eng.SetObjects(ctx, `[
		{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 20, "height": 20},
		{"id": 2, "type": "rectangle", "x": 10, "y": 10, "width": 20, "height": 20, "zIndex": 1}
	]`))
	a := join(h, "alice", "ca")
	drain(t, a)

	h.handleMessage(ctx, a, &Message{Type: TypeInputEvent, Payload: json.RawMessage(`{"name": "click", "offsetX": 15, "offsetY": 15}`)})
	msgs := drain(t, a)
	require.Equal(t, []string{TypeInputHits}, types(msgs))
	assert.JSONEq(t, `{"event": "click", "objects": [1, 2]}`, string(msgs[0].Payload))

	h.handleMessage(ctx, a, &Message{Type: TypeInputEvent, Payload: json.RawMessage(`"nope"`)})
	assert.Equal(t, []string{TypeError}, types(drain(t, a)))
}

func TestPresenceHover(t *testing.T) {
	h, eng := newTestHub(t)
	ctx := context.Background()
	require.NoError(t, eng.SetObjects(ctx, `[
		{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 20, "height": 20},
		{"id": 2, "type": "rectangle", "x": 10, "y": 10, "width": 20, "height": 20, "zIndex": 1}
	]`))
	a := join(h, "alice", "ca")
	b := join(h, "bob", "cb")
	drain(t, a)
	drain(t, b)

	h.handleMessage(ctx, a, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"cursor": {"x": 15, "y": 15}}`)})
	assert.Empty(t, drain(t, a))

	msgs := drain(t, b)
	require.Equal(t, []string{TypePresenceUpdate}, types(msgs))
	var p PresencePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
	assert.Equal(t, []document.Ref{{ID: "2", Numeric: true}, {ID: "1", Numeric: true}}, p.Hovered)
	assert.Equal(t, "alice name", p.DisplayName)

	c := join(h, "carol", "cc")
	state := drain(t, c)
	require.Equal(t, TypePresenceState, state[2].Type)
	var ps PresenceStatePayload
	require.NoError(t, json.Unmarshal(state[2].Payload, &ps))
	require.Contains(t, ps.Presences, "alice")
	assert.Equal(t, 15.0, ps.Presences["alice"].Cursor.X)
}

func TestUnknownMessageType(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(h, "alice", "ca")
	drain(t, a)

	h.handleMessage(context.Background(), a, &Message{Type: "bogus"})
	assert.Equal(t, []string{TypeError}, types(drain(t, a)))
}

func TestBroadcastFrame(t *testing.T) {
	h, eng := newTestHub(t)
	eng.Scene().OnPaint(func() {
		cmds, seq := eng.Frame()
		h.BroadcastFrame("s1", cmds, seq)
	})
	a := join(h, "alice", "ca")
	drain(t, a)

	_, err := eng.SetObject(context.Background(), `{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 5, "height": 5}`)
	require.NoError(t, err)

	msgs := drain(t, a)
	require.Equal(t, []string{TypeSceneFrame}, types(msgs))
	var f FramePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &f))
	assert.Equal(t, eng.FrameSeq(), f.Seq)
	assert.NotEmpty(t, f.Commands)

	h.BroadcastFrame("other", nil, 1)
}

func TestRemoveClient(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(h, "alice", "ca")
	b := join(h, "bob", "cb")
	drain(t, a)
	drain(t, b)

	h.removeClient(b)
	h.removeClient(b)

	msgs := drain(t, a)
	require.Equal(t, []string{TypePresenceLeave}, types(msgs))
	assert.Equal(t, "bob", msgs[0].UserID)

	_, ok := <-b.send
	assert.False(t, ok)

	h.removeClient(a)
	assert.False(t, h.hasRoom("s1"))
}

func TestCloseScene(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(h, "alice", "ca")
	drain(t, a)

	h.CloseScene("s1")
	msgs := drain(t, a)
	require.Equal(t, []string{TypeError}, types(msgs))
	assert.False(t, h.hasRoom("s1"))

	a.Send(&Message{Type: TypeError})
	h.CloseScene("s1")
}

func TestRunAndStop(t *testing.T) {
	h, _ := newTestHub(t)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	a := NewClient(h, nil, "alice", "Alice", "s1", "ca")
	h.Register(a)
	require.Eventually(t, func() bool { return h.hasRoom("s1") }, time.Second, 10*time.Millisecond)

	h.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.False(t, h.hasRoom("s1"))

	late := NewClient(h, nil, "bob", "Bob", "s1", "cb")
	h.Register(late)
	h.Unregister(late)
	_, ok := <-late.send
	assert.False(t, ok)
	h.Stop()
}
