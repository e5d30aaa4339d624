// Package client implements the transport side of one streamed exchange: a
// single POST carrying the question, then an incrementally-delivered response
// body fed through the frame decoder into the exchange state machine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/daniss/Raggy-sub000/internal/stream"
	"github.com/daniss/Raggy-sub000/internal/utils"
	"github.com/daniss/Raggy-sub000/pkg/logger"
)

// SessionTokenHeader carries the opaque session token on every request.
const SessionTokenHeader = "X-Session-Token"

const askPath = "/api/ask/stream"

var ErrNoSessionToken = errors.New("missing session token")

// AskRequest is the JSON body of one exchange. ConversationID is empty on the
// first exchange of a session and echoes the start event's value afterwards
// so the server keeps conversational context.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type Config struct {
	BaseURL      string
	SessionToken string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func New(cfg Config) *Client {
	return &Client{
		// No client-side timeout: an exchange is bounded only by the session
		// expiry, and cancellation travels through the request context.
		httpClient: utils.NewHTTPClient(0),
		baseURL:    cfg.BaseURL,
		token:      cfg.SessionToken,
	}
}

// Stream runs one exchange to its terminal phase, dispatching every decoded
// frame into ex. All outcomes, including transport failures and user
// cancellation, are delivered through the exchange callbacks.
func (c *Client) Stream(ctx context.Context, req AskRequest, ex *stream.Exchange) {
	if c.token == "" {
		ex.FailTransport(ErrNoSessionToken)
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		ex.FailTransport(fmt.Errorf("failed to marshal request: %w", err))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		ex.FailTransport(fmt.Errorf("failed to create request: %w", err))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set(SessionTokenHeader, c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.settleTransportError(ctx, ex, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		ex.FailTransport(fmt.Errorf("unexpected response status %d", resp.StatusCode))
		return
	}

	c.consume(ctx, resp.Body, ex)
}

// consume reads the response body chunk by chunk until the exchange reaches a
// terminal phase or the stream ends.
func (c *Client) consume(ctx context.Context, body io.Reader, ex *stream.Exchange) {
	decoder := stream.NewFrameDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range decoder.Feed(string(buf[:n])) {
				dispatch(payload, ex)
				if terminal(ex.Phase()) {
					// Stop consuming further frames once settled.
					return
				}
			}
		}

		if err == io.EOF {
			if payload, ok := decoder.Flush(); ok {
				dispatch(payload, ex)
			}
			if !terminal(ex.Phase()) {
				// Stream ended without a complete or error frame.
				ex.FailTransport(io.ErrUnexpectedEOF)
			}
			return
		}
		if err != nil {
			c.settleTransportError(ctx, ex, err)
			return
		}
	}
}

func dispatch(payload string, ex *stream.Exchange) {
	ev, err := stream.ParseEvent([]byte(payload))
	if err != nil {
		// Recovered silently; a single corrupt frame must not abort the
		// stream.
		logger.Warnf("client: dropping frame: %v", err)
		return
	}
	ex.HandleEvent(ev)
}

// settleTransportError distinguishes user cancellation, which is a distinct
// terminal outcome that keeps the partial text, from genuine failures.
func (c *Client) settleTransportError(ctx context.Context, ex *stream.Exchange, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		ex.Stop()
		return
	}
	ex.FailTransport(err)
}

func terminal(p stream.Phase) bool {
	switch p {
	case stream.PhaseCompleted, stream.PhaseErrored, stream.PhaseStopped:
		return true
	}
	return false
}
