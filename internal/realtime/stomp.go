package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StompSubscriber speaks STOMP 1.2 over a WebSocket.
type StompSubscriber struct {
	URL       string
	Topic     string
	Heartbeat time.Duration
	Token     func() string
	Dialer    *websocket.Dialer
	Logger    *zap.Logger
}

// Run connects, subscribes to the topic and forwards MESSAGE bodies.
func (s *StompSubscriber) Run(ctx context.Context, handle func([]byte)) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	topic := s.Topic
	if topic == "" {
		topic = TicketsTopic
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	}

	header := http.Header{}
	token := ""
	if s.Token != nil {
		token = s.Token()
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, resp, err := dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("realtime dial %s: status %d: %w", s.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("realtime dial %s: %w", s.URL, err)
	}
	stream := newWebSocketStream(ws)

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host(hostOf(s.URL)),
		stomp.ConnOpt.HeartBeat(heartbeat, heartbeat),
	}
	if token != "" {
		opts = append(opts, stomp.ConnOpt.Header("Authorization", "Bearer "+token))
	}

	// Connect blocks on the CONNECTED frame; closing the stream unblocks it.
	stopConnect := context.AfterFunc(ctx, func() { _ = stream.Close() })
	_ = ws.SetReadDeadline(time.Now().Add(2 * heartbeat))
	conn, err := stomp.Connect(stream, opts...)
	_ = ws.SetReadDeadline(time.Time{})
	if !stopConnect() || ctx.Err() != nil {
		_ = stream.Close()
		return nil
	}
	if err != nil {
		_ = stream.Close()
		return fmt.Errorf("stomp connect: %w", err)
	}

	sub, err := conn.Subscribe(topic, stomp.AckAuto, stomp.SubscribeOpt.Id(uuid.NewString()))
	if err != nil {
		_ = conn.MustDisconnect()
		return fmt.Errorf("stomp subscribe: %w", err)
	}
	logger.Info("realtime subscribed", zap.String("url", s.URL), zap.String("topic", topic))

	for {
		select {
		case <-ctx.Done():
			_ = conn.MustDisconnect()
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("realtime connection closed")
			}
			if msg.Err != nil {
				return fmt.Errorf("stomp: %w", msg.Err)
			}
			handle(msg.Body)
		}
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "/"
	}
	return u.Hostname()
}

// webSocketStream presents a WebSocket as the byte stream a STOMP client
// reads and writes. Each Write is sent as one text message.
type webSocketStream struct {
	conn    *websocket.Conn
	reader  io.Reader
	writeMu sync.Mutex
}

func newWebSocketStream(conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{conn: conn}
}

func (s *webSocketStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.reader = r
		}
		n, err := s.reader.Read(p)
		if errors.Is(err, io.EOF) {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *webSocketStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *webSocketStream) Close() error {
	return s.conn.Close()
}
