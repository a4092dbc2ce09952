package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
)

const ioDeadline = 10 * time.Second

// ErrRejected marks a server-side error event for a stream request.
var ErrRejected = errors.New("stream request rejected")

// Client is a connected exam stream. The protocol is strict
// request/response per message, so calls are serialized by a mutex.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  zerolog.Logger
}

// Dial connects to the exam stream endpoint, authenticating with the
// bearer token as a query parameter (WebSocket upgrades cannot carry an
// Authorization header from browsers, and the server accepts ?token=).
func Dial(ctx context.Context, wsBaseURL string, examID uuid.UUID, token string, log zerolog.Logger) (*Client, error) {
	endpoint := fmt.Sprintf("%s/student/exams/%s/stream?token=%s",
		wsBaseURL, url.PathEscape(examID.String()), url.QueryEscape(token))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial exam stream: %w", err)
	}

	return &Client{
		conn: conn,
		log:  log.With().Str("component", "stream").Str("exam_id", examID.String()).Logger(),
	}, nil
}

// Autosave pushes one answer to the server-side autosave buffer.
// Unanswered selections are not sent — the server treats absence as
// blank.
func (c *Client) Autosave(questionID uuid.UUID, answer model.Answer) error {
	ans, ok := wireAnswer(answer)
	if !ok {
		return nil
	}

	resp, err := c.roundTrip(request{Action: ActionAutosave, QID: questionID.String(), Ans: ans})
	if err != nil {
		return err
	}
	if resp.Event != EventSuccess {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return nil
}

// Submit asks the server to grade the autosaved answers and returns the
// score.
func (c *Client) Submit() (float64, error) {
	resp, err := c.roundTrip(request{Action: ActionSubmit})
	if err != nil {
		return 0, err
	}
	if resp.Event != EventGraded {
		return 0, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return resp.Score, nil
}

// Ping performs a keepalive round-trip.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(request{Action: ActionPing})
	if err != nil {
		return err
	}
	if resp.Event != EventPong {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return nil
}

// Close shuts the stream down cleanly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) roundTrip(req request) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(ioDeadline)); err != nil {
		return nil, err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write %s: %w", req.Action, err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(ioDeadline)); err != nil {
		return nil, err
	}
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Action, err)
	}

	c.log.Debug().Str("action", string(req.Action)).Str("event", string(resp.Event)).Msg("stream round-trip")
	return &resp, nil
}

// wireAnswer renders an answer in the stream's string form: the option
// index in decimal for multiple choice, the raw text for essays.
func wireAnswer(a model.Answer) (string, bool) {
	switch a.Kind {
	case model.AnswerOption:
		return strconv.Itoa(a.Option), true
	case model.AnswerText:
		if a.Text == "" {
			return "", false
		}
		return a.Text, true
	default:
		return "", false
	}
}
