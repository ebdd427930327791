package websocket

import (
	"testing"
	"time"

	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/maths"
	"github.com/aukilabs/globe/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestHandler(regions *models.RegionStore, batchSize int, idleTimeout time.Duration) func() Handler {
	return func() Handler {
		var h Handler = &CoverageHandler{
			ClientIdleTimeout: idleTimeout,
			Regions:           regions,
			DefaultDepth:      3,
			MaxDepth:          6,
			BatchSize:         batchSize,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://globe-test.com")
		return h
	}
}

func newTestRegions(t *testing.T) *models.RegionStore {
	pg, err := maths.NewPolygonOnSphere([]maths.UnitVector3D{
		maths.UnitVectorFromLatLon(-5, -5),
		maths.UnitVectorFromLatLon(-5, 5),
		maths.UnitVectorFromLatLon(5, 5),
		maths.UnitVectorFromLatLon(5, -5),
	})
	require.NoError(t, err)

	regions := &models.RegionStore{}
	regions.Add("square", pg)
	return regions
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg Msg) {
	_, err := Send(conn, msg)
	require.NoError(t, err)
}

func receiveMsg(t *testing.T, conn *websocket.Conn) Msg {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	msg, _, err := Receive(conn)
	require.NoError(t, err)
	return msg
}

func intPtr(v int) *int {
	return &v
}

func TestHandlerHandlePing(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestRegions(t), 0, time.Minute))
	defer close()

	sendMsg(t, client, Msg{Type: MsgTypePing, RequestID: 1})

	msg := receiveMsg(t, client)
	require.Equal(t, MsgTypePong, msg.Type)
	require.Equal(t, uint32(1), msg.RequestID)
}

func TestHandlerHandleCoverageRequest(t *testing.T) {
	regions := newTestRegions(t)
	region, ok := regions.Get(1)
	require.True(t, ok)

	tests := []struct {
		name          string
		depth         *int
		expectedDepth int
		batchSize     int
	}{
		{
			name:          "small batches",
			depth:         intPtr(5),
			expectedDepth: 5,
			batchSize:     7,
		},
		{
			name:          "default depth",
			expectedDepth: 3,
			batchSize:     4,
		},
		{
			name:          "single batch",
			depth:         intPtr(2),
			expectedDepth: 2,
			batchSize:     DefaultBatchSize,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, close := NewTestingEnv(t, newTestHandler(regions, test.batchSize, time.Minute))
			defer close()

			expected, err := region.Coverage(test.expectedDepth)
			require.NoError(t, err)

			sendMsg(t, client, Msg{
				Type:      MsgTypeCoverageRequest,
				RequestID: 42,
				RegionID:  region.ID,
				Depth:     test.depth,
			})

			var triangles [][3][3]float64
			for {
				msg := receiveMsg(t, client)
				require.Equal(t, uint32(42), msg.RequestID)
				require.Equal(t, region.ID, msg.RegionID)
				require.NotNil(t, msg.Depth)
				require.Equal(t, test.expectedDepth, *msg.Depth)

				if msg.Type == MsgTypeCoverageDone {
					require.Equal(t, len(triangles), msg.Total)
					break
				}

				require.Equal(t, MsgTypeCoverageBatch, msg.Type)
				require.Equal(t, len(triangles), msg.Offset)
				require.NotEmpty(t, msg.Triangles)
				require.LessOrEqual(t, len(msg.Triangles), test.batchSize)
				triangles = append(triangles, msg.Triangles...)
			}

			require.Len(t, triangles, expected.Len())
			for i, tri := range expected.Triangles {
				require.InDeltaSlice(t, flatten(tri.Coordinates()), flatten(triangles[i]), 1e-12)
			}
		})
	}
}

func flatten(coords [3][3]float64) []float64 {
	s := make([]float64, 0, 9)
	for _, c := range coords {
		s = append(s, c[:]...)
	}
	return s
}

func TestHandlerHandleCoverageRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		msg     Msg
		errType string
	}{
		{
			name: "unknown region",
			msg: Msg{
				Type:      MsgTypeCoverageRequest,
				RequestID: 3,
				RegionID:  21,
			},
			errType: models.ErrTypeRegionNotFound,
		},
		{
			name: "depth too deep",
			msg: Msg{
				Type:      MsgTypeCoverageRequest,
				RequestID: 4,
				RegionID:  1,
				Depth:     intPtr(7),
			},
			errType: coverage.ErrTypeInvalidDepth,
		},
		{
			name: "negative depth",
			msg: Msg{
				Type:      MsgTypeCoverageRequest,
				RequestID: 5,
				RegionID:  1,
				Depth:     intPtr(-1),
			},
			errType: coverage.ErrTypeInvalidDepth,
		},
		{
			name: "unknown message type",
			msg: Msg{
				Type:      "teleport",
				RequestID: 6,
			},
			errType: ErrTypeUnknownMsg,
		},
	}

	client, close := NewTestingEnv(t, newTestHandler(newTestRegions(t), 0, time.Minute))
	defer close()

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sendMsg(t, client, test.msg)

			msg := receiveMsg(t, client)
			require.Equal(t, MsgTypeError, msg.Type)
			require.Equal(t, test.msg.RequestID, msg.RequestID)
			require.Equal(t, test.errType, msg.ErrorType)
			require.NotEmpty(t, msg.Error)
		})
	}

	// The connection stays open after error messages.
	sendMsg(t, client, Msg{Type: MsgTypePing, RequestID: 7})
	require.Equal(t, MsgTypePong, receiveMsg(t, client).Type)
}

func TestHandlerIdleTimeout(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestRegions(t), 0, time.Millisecond*50))
	defer close()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))

	start := time.Now()
	_, _, err := Receive(client)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestHandlerMalformedMessage(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestRegions(t), 0, time.Minute))
	defer close()

	require.NoError(t, websocket.Message.Send(client, "{not json"))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))

	start := time.Now()
	_, _, err := Receive(client)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}
