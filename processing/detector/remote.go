package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trackview/internal/logger"
)

// RemoteModel sends frames as JPEG over a websocket to a detection server and
// waits for a JSON array of result rows in reply. The connection is dialed on
// first use and again after any failure.
type RemoteModel struct {
	serverURL string
	dialer    *websocket.Dialer

	conn *websocket.Conn
}

func NewRemoteModel(host, model string) *RemoteModel {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	if model != "" {
		u.RawQuery = url.Values{"model": {model}}.Encode()
	}

	return &RemoteModel{
		serverURL: u.String(),
		dialer:    websocket.DefaultDialer,
	}
}

func (d *RemoteModel) connect() error {
	logger.Log().Info("connecting to detector server", zap.String("url", d.serverURL))

	conn, _, err := d.dialer.Dial(d.serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", d.serverURL, err)
	}

	logger.Log().Info("connected to detection server")
	d.conn = conn
	return nil
}

func (d *RemoteModel) Infer(frame image.Image) ([][]float32, error) {
	if d.conn == nil {
		if err := d.connect(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, nil); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	if err := d.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		d.drop(err)
		return nil, fmt.Errorf("send frame: %w", err)
	}

	_, message, err := d.conn.ReadMessage()
	if err != nil {
		d.drop(err)
		return nil, fmt.Errorf("read result: %w", err)
	}

	var rows [][]float32
	if err := json.Unmarshal(message, &rows); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	return rows, nil
}

func (d *RemoteModel) drop(err error) {
	logger.Log().Warn("connection lost", zap.Error(err))
	d.conn.Close()
	d.conn = nil
}

func (d *RemoteModel) Close() error {
	if d.conn == nil {
		return nil
	}
	_ = d.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := d.conn.Close()
	d.conn = nil
	return err
}
