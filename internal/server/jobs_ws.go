package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/learning-platform/internal/auth"
	"github.com/gokatarajesh/learning-platform/internal/jobs"
	httperrors "github.com/gokatarajesh/learning-platform/pkg/http/errors"
	"github.com/gokatarajesh/learning-platform/pkg/http/ws"
)

// jobStream pushes job status changes to websocket subscribers.
type jobStream struct {
	hub    *ws.Hub
	jobs   jobService
	logger zerolog.Logger
}

func (s *jobStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject := auth.Subject(r.Context())

	conn, err := WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	connID := uuid.New()
	log := s.logger.With().Str("conn_id", connID.String()).Logger()
	wsConn := ws.NewConnection(conn, log)
	s.hub.RegisterConnection(connID, wsConn)

	go wsConn.WritePump()

	// The request context ends with the upgrade, so lookups use a detached one.
	ctx := context.WithoutCancel(r.Context())
	wsConn.ReadPump(func(msg ws.Message) error {
		return s.handleMessage(ctx, connID, subject, msg)
	})

	s.hub.UnregisterConnection(connID)
}

func (s *jobStream) handleMessage(ctx context.Context, connID uuid.UUID, subject string, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeSubscribeJob:
		return s.handleSubscribe(ctx, connID, subject, msg.Payload)
	case ws.TypeUnsubscribeJob:
		jobID, err := parseJobPayload(msg.Payload)
		if err != nil {
			return s.sendError(connID, httperrors.ErrCodeInvalidPayload, "Invalid unsubscribe_job payload")
		}
		s.hub.Unsubscribe(jobID, connID)
		return nil
	case ws.TypePing:
		return s.hub.SendTo(connID, ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	default:
		return s.sendError(connID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (s *jobStream) handleSubscribe(ctx context.Context, connID uuid.UUID, subject string, payload json.RawMessage) error {
	jobID, err := parseJobPayload(payload)
	if err != nil {
		return s.sendError(connID, httperrors.ErrCodeInvalidPayload, "Invalid subscribe_job payload")
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil || !ownedBy(job, subject) {
		return s.sendError(connID, httperrors.ErrCodeJobNotFound, "Job not found")
	}

	s.hub.Subscribe(jobID, connID)

	ack, err := ws.NewMessage(ws.TypeSubscribed, ws.SubscribeJobPayload{JobID: jobID.String()})
	if err != nil {
		return err
	}
	if err := s.hub.SendTo(connID, ack); err != nil {
		return err
	}

	// Current state first, so a job that finished before subscribing is not missed.
	snapshot, err := ws.NewMessage(ws.TypeJobUpdate, jobs.UpdatePayload(job.Update()))
	if err != nil {
		return err
	}
	return s.hub.SendTo(connID, snapshot)
}

func parseJobPayload(payload json.RawMessage) (uuid.UUID, error) {
	var req ws.SubscribeJobPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(req.JobID)
}

func (s *jobStream) sendError(connID uuid.UUID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return s.hub.SendTo(connID, msg)
}
