package detector

import (
	"errors"
	"image"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	rows   [][]float32
	err    error
	calls  int
	resets int
	closed bool
}

func (m *stubModel) Infer(image.Image) ([][]float32, error) {
	m.calls++
	return m.rows, m.err
}

func (m *stubModel) Close() error {
	m.closed = true
	return nil
}

func (m *stubModel) Reset() { m.resets++ }

func frame() image.Image { return image.NewRGBA(image.Rect(0, 0, 8, 8)) }

func TestNormalize_Shapes(t *testing.T) {
	rows := [][]float32{
		{10, 20, 30, 40, 7, 0.91, 2},
		{1, 2, 3, 4, 0.456, 0},
	}

	dets := Normalize(rows)
	require.Len(t, dets, 2)

	tracked := dets[0]
	require.True(t, tracked.Tracked())
	assert.Equal(t, int64(7), *tracked.TrackID)
	assert.Equal(t, float32(0.91), tracked.Confidence)
	assert.Equal(t, 2, tracked.ClassIndex)
	assert.Equal(t, 10, tracked.Box.X1)
	assert.Equal(t, 40, tracked.Box.Y2)

	plain := dets[1]
	assert.False(t, plain.Tracked())
	assert.Equal(t, float32(0.456), plain.Confidence)
	assert.Equal(t, 0, plain.ClassIndex)
}

func TestNormalize_Malformed(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		rows [][]float32
	}{
		{"nil", nil},
		{"empty row", [][]float32{{}}},
		{"too short", [][]float32{{1, 2, 3, 4, 0.5}}},
		{"too long", [][]float32{{1, 2, 3, 4, 5, 6, 7, 8}}},
		{"nan", [][]float32{{nan, 2, 3, 4, 0.5, 1}}},
		{"inf", [][]float32{{1, 2, 3, 4, inf, 1}}},
		{"negative class", [][]float32{{1, 2, 3, 4, 0.5, -1}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, Normalize(tc.rows))
		})
	}
}

func TestNormalize_KeepsOrderAndDropsBadRows(t *testing.T) {
	rows := [][]float32{
		{0, 0, 1, 1, 0.9, 1},
		{0, 0},
		{5, 5, 6, 6, 3, 0.8, 0},
	}

	dets := Normalize(rows)
	require.Len(t, dets, 2)
	assert.Equal(t, 1, dets[0].ClassIndex)
	assert.Equal(t, int64(3), *dets[1].TrackID)
}

func TestInvoker_Detect(t *testing.T) {
	m := &stubModel{rows: [][]float32{{0, 0, 5, 5, 0.5, 1}}}
	inv := NewInvoker(m)

	dets := inv.Detect(frame())
	assert.Len(t, dets, 1)
	assert.Equal(t, 1, m.calls)
}

func TestInvoker_ModelErrorIsNoDetections(t *testing.T) {
	inv := NewInvoker(&stubModel{err: errors.New("boom")})
	assert.Empty(t, inv.Detect(frame()))

	assert.Empty(t, NewInvoker(nil).Detect(frame()))
}

func TestInvoker_SwapResetClose(t *testing.T) {
	first := &stubModel{}
	second := &stubModel{}
	inv := NewInvoker(first)

	inv.Swap(second)
	assert.True(t, first.closed)

	inv.Reset()
	assert.Equal(t, 1, second.resets)

	require.NoError(t, inv.Close())
	assert.True(t, second.closed)
	require.NoError(t, inv.Close())
}

func newDetectionServer(t *testing.T, reply func(model string, frame []byte) string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		model := r.URL.Query().Get("model")
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply(model, msg))); err != nil {
				return
			}
		}
	}))
}

func TestRemoteModel_RoundTrip(t *testing.T) {
	var gotModel string
	srv := newDetectionServer(t, func(model string, frame []byte) string {
		gotModel = model
		if len(frame) == 0 {
			return "[]"
		}
		return `[[1,2,3,4,9,0.75,1],[5,6,7,8,0.5,0]]`
	})
	defer srv.Close()

	m := NewRemoteModel(strings.TrimPrefix(srv.URL, "http://"), "bestfire")
	defer m.Close()

	rows, err := m.Infer(frame())
	require.NoError(t, err)
	assert.Equal(t, "bestfire", gotModel)
	require.Len(t, rows, 2)

	dets := Normalize(rows)
	require.Len(t, dets, 2)
	assert.Equal(t, int64(9), *dets[0].TrackID)
}

func TestRemoteModel_BadReply(t *testing.T) {
	srv := newDetectionServer(t, func(string, []byte) string { return "not json" })
	defer srv.Close()

	inv := NewInvoker(NewRemoteModel(strings.TrimPrefix(srv.URL, "http://"), ""))
	defer inv.Close()

	assert.Empty(t, inv.Detect(frame()))
}

func TestRemoteModel_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	m := NewRemoteModel(host, "")
	_, err := m.Infer(frame())
	assert.Error(t, err)
	assert.NoError(t, m.Close())
}
