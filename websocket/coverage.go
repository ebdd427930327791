package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	// HeaderClientID is the request header identifying a client. A random id
	// is assigned when it is missing.
	HeaderClientID = "X-Client-Id"

	DefaultBatchSize = 256
)

// CoverageHandler streams the coverage meshes of stored regions in batches of
// triangles.
type CoverageHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains the regions.
	Regions *models.RegionStore

	// The depth of meshes when the request does not specify one.
	DefaultDepth int

	// The deepest mesh a client can ask for.
	MaxDepth int

	// The maximum number of triangles in a batch. Defaults to
	// DefaultBatchSize.
	BatchSize int

	conn     *websocket.Conn
	clientID string
}

func (h *CoverageHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.conn = conn
}

func (h *CoverageHandler) HandleDisconnect(_ error) {
}

func (h *CoverageHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	respond.Send(Msg{
		Type:      MsgTypePong,
		RequestID: msg.RequestID,
	})
	return nil
}

// HandleCoverageRequest generates the coverage mesh of the requested region and
// sends it as coverage batches followed by a coverage done message. Unknown
// regions and invalid depths are answered with an error message.
func (h *CoverageHandler) HandleCoverageRequest(ctx context.Context, respond ResponseSender, msg Msg) error {
	region, ok := h.Regions.Get(msg.RegionID)
	if !ok {
		respond.Send(ErrorMsg(
			msg.RequestID,
			models.ErrTypeRegionNotFound,
			fmt.Sprintf("region %d not found", msg.RegionID),
		))
		return nil
	}

	depth := h.DefaultDepth
	if msg.Depth != nil {
		depth = *msg.Depth
	}
	if depth < 0 || depth > h.MaxDepth {
		respond.Send(ErrorMsg(
			msg.RequestID,
			coverage.ErrTypeInvalidDepth,
			fmt.Sprintf("depth %d is not in [0, %d]", depth, h.MaxDepth),
		))
		return nil
	}

	mesh, err := region.Coverage(depth)
	if err != nil {
		return err
	}

	batchSize := h.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for offset := 0; offset < mesh.Len(); offset += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(offset+batchSize, mesh.Len())
		triangles := make([][3][3]float64, 0, end-offset)
		for _, t := range mesh.Triangles[offset:end] {
			triangles = append(triangles, t.Coordinates())
		}

		respond.Send(Msg{
			Type:      MsgTypeCoverageBatch,
			RequestID: msg.RequestID,
			RegionID:  region.ID,
			Depth:     &depth,
			Offset:    offset,
			Triangles: triangles,
		})
	}

	respond.Send(Msg{
		Type:      MsgTypeCoverageDone,
		RequestID: msg.RequestID,
		RegionID:  region.ID,
		Depth:     &depth,
		Total:     mesh.Len(),
	})
	return nil
}

func (h *CoverageHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *CoverageHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *CoverageHandler) Close() {
}

func (h *CoverageHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *CoverageHandler) GetClientID() string {
	return h.clientID
}
