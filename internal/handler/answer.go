package handler

import (
	"net/http"
	"time"

	"github.com/daniss/Raggy-sub000/internal/answer"
	"github.com/daniss/Raggy-sub000/internal/model"
	"github.com/daniss/Raggy-sub000/internal/utils"
	"github.com/daniss/Raggy-sub000/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionTokenHeader = "X-Session-Token"

// keepAliveEvery interleaves a blank keep-alive line between token frames.
const keepAliveEvery = 20

type askRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// frame is the JSON payload of one protocol line. Only the fields of the
// frame's type are set.
type frame struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Content        string         `json:"content,omitempty"`
	Sources        []model.Source `json:"sources,omitempty"`
	ResponseTime   float64        `json:"response_time,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// AnswerHandler serves the streamed question/answer protocol.
type AnswerHandler struct {
	generator  answer.Generator
	corpus     []answer.Document
	tokenDelay time.Duration
}

func NewAnswerHandler(generator answer.Generator, corpus []answer.Document, tokenDelay time.Duration) *AnswerHandler {
	return &AnswerHandler{
		generator:  generator,
		corpus:     corpus,
		tokenDelay: tokenDelay,
	}
}

// StreamAnswer handles POST /api/ask/stream: start, tokens, sources, then
// complete or error, all as "data: " frames on one response body.
func (h *AnswerHandler) StreamAnswer(c *gin.Context) {
	if c.GetHeader(sessionTokenHeader) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	started := time.Now()
	ctx := c.Request.Context()
	fw := utils.NewFrameWriter(c.Writer)

	h.writeFrame(fw, frame{Type: "start", ConversationID: conversationID})

	sources := answer.Retrieve(req.Question, h.corpus, 3)

	// An early partial list, refined to the full list before complete. The
	// consumer treats every sources frame as a full replacement.
	if len(sources) > 1 {
		h.writeFrame(fw, frame{Type: "sources", Sources: sources[:1]})
	}

	tokens, errs := h.generator.Answer(ctx, req.Question, sources)

	count := 0
	for token := range tokens {
		if !h.writeFrame(fw, frame{Type: "token", Content: token}) {
			return
		}

		count++
		if count%keepAliveEvery == 0 {
			fw.WriteKeepAlive()
		}
		if h.tokenDelay > 0 {
			select {
			case <-time.After(h.tokenDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	if err := <-errs; err != nil {
		logger.Errorf("handler: answer generation failed: %v", err)
		h.writeFrame(fw, frame{Type: "error", Message: "La génération de la réponse a échoué."})
		return
	}

	if len(sources) > 0 {
		h.writeFrame(fw, frame{Type: "sources", Sources: sources})
	}
	h.writeFrame(fw, frame{
		Type:         "complete",
		ResponseTime: float64(time.Since(started).Milliseconds()),
	})
}

func (h *AnswerHandler) writeFrame(fw *utils.FrameWriter, f frame) bool {
	if err := fw.WriteFrame(f); err != nil {
		logger.Warnf("handler: failed to write frame: %v", err)
		return false
	}
	return true
}
