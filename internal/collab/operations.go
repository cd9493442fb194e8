package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
)

var ErrUnknownOperation = errors.New("unknown operation type")

// SceneState pairs a room's scene with its operation sequence.
type SceneState struct {
	mu        sync.Mutex
	engine    *engine.Engine
	serverSeq int64
}

func NewSceneState(eng *engine.Engine) *SceneState {
	return &SceneState{engine: eng}
}

// ServerSeq returns the sequence number of the last applied operation.
func (ss *SceneState) ServerSeq() int64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.serverSeq
}

// ApplyOperation applies op to the scene and returns the server sequence.
// Operations are applied one at a time so sequence numbers follow the order
// in which the scene saw them.
func (ss *SceneState) ApplyOperation(ctx context.Context, op Operation) (int64, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := applyOperation(ctx, ss.engine, op); err != nil {
		return 0, err
	}

	ss.serverSeq++
	return ss.serverSeq, nil
}

func applyOperation(ctx context.Context, eng *engine.Engine, op Operation) error {
	switch op.Type {
	case "object.set":
		if len(op.Object) == 0 {
			return document.ErrInvalidArgumentShape
		}
		_, err := eng.SetObject(ctx, string(op.Object))
		return err
	case "object.setMany":
		if len(op.Objects) == 0 {
			return document.ErrInvalidBatchShape
		}
		return eng.SetObjects(ctx, string(op.Objects))
	case "object.update":
		if len(op.Patch) == 0 {
			return document.ErrInvalidArgumentShape
		}
		return eng.UpdateObject(ctx, op.ObjectID, string(op.Patch))
	case "object.delete":
		return eng.DeleteObject(op.ObjectID)
	case "object.move":
		return eng.MoveObject(op.ObjectID, op.X, op.Y, string(op.Mode))
	case "scene.clear":
		return eng.Clear()
	case "chunk.set":
		if len(op.Chunk) == 0 {
			return document.ErrInvalidArgumentShape
		}
		return eng.SetChunk(string(op.Chunk))
	case "chunk.clear":
		if op.ChunkID == "" {
			return eng.ClearChunks()
		}
		return eng.ClearChunk(op.ChunkID)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
