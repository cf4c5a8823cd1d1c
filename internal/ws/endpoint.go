// Package ws implements the streaming transcription endpoint: it upgrades
// an HTTP request to a WebSocket, owns one session's ingest/emit loop, and
// drives the pipeline scheduler from incoming audio and control frames.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cumulative-transcribe-service/internal/audio"
	"cumulative-transcribe-service/internal/config"
	"cumulative-transcribe-service/internal/events"
	"cumulative-transcribe-service/internal/models"
	"cumulative-transcribe-service/internal/normalize"
	"cumulative-transcribe-service/internal/observability/logging"
	"cumulative-transcribe-service/internal/observability/metrics"
	"cumulative-transcribe-service/internal/pipeline"
	"cumulative-transcribe-service/internal/schema"
	"cumulative-transcribe-service/internal/session"
	"cumulative-transcribe-service/internal/transcribe"
	"cumulative-transcribe-service/internal/translate"

	"golang.org/x/sync/semaphore"
)

const writeQueueDepth = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Endpoint serves the transcription WebSocket route. One Endpoint is shared
// across all connections; it holds the process-wide collaborators each
// connection's session and scheduler are built from.
type Endpoint struct {
	cfg         *config.Config
	registry    *session.Registry
	transcriber transcribe.Transcriber
	normalizer  normalize.Normalizer
	translator  translate.Translator
	sem         *semaphore.Weighted
	publisher   *events.Publisher
	metrics     *metrics.Metrics
	validator   *schema.Validator
}

// New constructs an Endpoint from the process's shared collaborators.
func New(cfg *config.Config, registry *session.Registry, transcriber transcribe.Transcriber, normalizer normalize.Normalizer, translator translate.Translator, sem *semaphore.Weighted, publisher *events.Publisher, m *metrics.Metrics) *Endpoint {
	return &Endpoint{
		cfg:         cfg,
		registry:    registry,
		transcriber: transcriber,
		normalizer:  normalizer,
		translator:  translator,
		sem:         sem,
		publisher:   publisher,
		metrics:     m,
		validator:   schema.New(),
	}
}

// ServeHTTP implements internal/http's StreamHandler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := e.registry.Create()
	logger := logging.WithSession(sess.ID.String())
	logger.Info().Msg("session connected")

	c := &streamSession{
		endpoint: e,
		sess:     sess,
		conn:     conn,
		logger:   logger,
		outbox:   make(chan any, writeQueueDepth),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	c.sched = pipeline.New(
		pipeline.Config{
			TranscriptionInterval: e.cfg.CumulativeBuffer.TranscriptionInterval,
			MinAudioSeconds:       e.cfg.CumulativeBuffer.MinAudioSeconds,
			FinalizationTimeout:   e.cfg.FinalizationTimeout(),
			BeamSize:              e.cfg.STT.BeamSize,
			Language:              e.cfg.STT.LanguageCode,
		},
		sess, e.transcriber, e.normalizer, e.translator, e.sem, c, e.metrics,
	)

	c.run(r.Context())
}

// streamSession owns one WebSocket connection's read loop, write loop, and
// scheduler wiring.
type streamSession struct {
	endpoint *Endpoint
	sess     *session.State
	conn     *websocket.Conn
	logger   zerolog.Logger
	sched    *pipeline.Scheduler

	outbox  chan any
	done    chan struct{}
	stopped chan struct{}
}

func (c *streamSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop()

	c.send(models.Connected{Type: "connected", SessionID: c.sess.ID.String()})
	c.endpoint.metrics.RecordSessionStart()

	var endedCleanly bool
	defer func() {
		close(c.done)
		<-c.stopped // writeLoop has drained the outbox and closed conn
		c.endpoint.registry.Destroy(c.sess.ID)
		c.endpoint.metrics.RecordSessionEnd(endedCleanly, c.sess.Buffer.SessionElapsedSec())
		c.logger.Info().Msg("session closed")
	}()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Msg("unexpected websocket close")
			}
			return
		}

		c.sess.Touch()

		switch msgType {
		case websocket.BinaryMessage:
			c.handleAudioFrame(ctx, data)
		case websocket.TextMessage:
			if c.handleControlFrame(ctx, data) {
				endedCleanly = true
				return
			}
		default:
			c.EmitError(models.ErrCodeProtocol, "unsupported websocket frame type")
		}
	}
}

// handleAudioFrame decodes one incoming audio frame, appends it to the
// session buffer, triggers the scheduler's transcription-eligibility check,
// and emits the accumulating acknowledgement. Decode failures are non-fatal:
// the frame is dropped and the session continues.
func (c *streamSession) handleAudioFrame(ctx context.Context, data []byte) {
	decoder := audio.NewDecoder(c.sess.Options().RawPCM)
	pcm, err := decoder.Decode(data)
	if err != nil {
		c.endpoint.metrics.RecordAudioRejected("decode")
		c.EmitError(models.ErrCodeDecode, err.Error())
		return
	}

	if err := c.sess.Buffer.Append(pcm); err != nil {
		c.endpoint.metrics.RecordAudioRejected("append")
		c.EmitError(models.ErrCodeDecode, err.Error())
		return
	}
	c.endpoint.metrics.RecordAudioReceived(len(pcm))

	chunkID := c.sess.Buffer.ChunkCount()
	c.send(models.Accumulating{
		Type:                         "accumulating",
		ChunkID:                      chunkID,
		DurationSec:                  c.sess.Buffer.DurationSec(),
		SessionElapsedSec:            c.sess.Buffer.SessionElapsedSec(),
		ChunksUntilNextTranscription: c.sched.ChunksUntilNextTranscription(),
	})

	c.sched.OnAudioAppended(ctx)
}

// handleControlFrame dispatches an options or end-of-stream text message.
// Returns true once the end message has triggered finalization and the
// connection should close.
func (c *streamSession) handleControlFrame(ctx context.Context, data []byte) bool {
	var frame schema.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.EmitError(models.ErrCodeProtocol, "malformed control message")
		return false
	}
	if err := c.endpoint.validator.Validate(frame); err != nil {
		c.EmitError(models.ErrCodeProtocol, err.Error())
		return false
	}

	switch frame.Type {
	case "options":
		c.sess.ApplyOptions(models.Options{
			Type:              frame.Type,
			EnableHiragana:    frame.EnableHiragana,
			EnableTranslation: frame.EnableTranslation,
			EnableSummary:     frame.EnableSummary,
			RawPCM:            frame.RawPCM,
		})
		return false
	case "end":
		if !c.sess.MarkEnded() {
			return false
		}
		result := c.sched.Finalize(ctx)
		c.send(result)
		if c.endpoint.publisher != nil {
			_ = c.endpoint.publisher.PublishFinal(ctx, c.sess.ID.String(), result)
		}
		return true
	}
	return false
}

// EmitUpdate implements pipeline.Emitter.
func (c *streamSession) EmitUpdate(u models.TranscriptionUpdate) {
	u.Type = "transcription_update"
	c.endpoint.metrics.TranscriptionUpdatesEmitted.Inc()
	c.send(u)
}

// EmitProgress implements pipeline.Emitter.
func (c *streamSession) EmitProgress(step models.ProgressStep, message string) {
	c.send(models.Progress{Type: "progress", Step: step, Message: message})
}

// EmitError implements pipeline.Emitter.
func (c *streamSession) EmitError(code models.ErrorCode, message string) {
	c.send(models.ErrorMessage{Type: "error", Code: code, Message: message})
}

// EmitHistoryGrowth implements pipeline.Emitter.
func (c *streamSession) EmitHistoryGrowth(entry models.HistoryEntry) {
	if c.endpoint.publisher != nil {
		_ = c.endpoint.publisher.PublishHistoryGrowth(context.Background(), c.sess.ID.String(), entry)
	}
}

// send enqueues a message for the write loop. Never blocks the caller past
// the queue's capacity; a full queue means the connection is not keeping up
// and the message is dropped rather than stalling the pipeline.
func (c *streamSession) send(msg any) {
	select {
	case c.outbox <- msg:
	case <-c.done:
	default:
		c.logger.Warn().Msg("write queue full, dropping message")
	}
}

// writeLoop is the single goroutine allowed to call conn.WriteJSON,
// guaranteeing emission order matches enqueue order across all callers. On
// done it drains whatever was already enqueued (notably the session_end
// reply) before returning, so closing the connection never races a message
// that is already sitting in the outbox.
func (c *streamSession) writeLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer func() {
		_ = c.conn.Close()
		close(c.stopped)
	}()

	for {
		select {
		case <-c.done:
			c.drainOutbox()
			return
		case msg := <-c.outbox:
			if err := c.conn.WriteJSON(msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Warn().Msg("write failed")
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

func (c *streamSession) drainOutbox() {
	for {
		select {
		case msg := <-c.outbox:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
