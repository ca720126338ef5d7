package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
)

// handleDiagnosisStream answers each DiagnosticInput message on the socket
// with a DiagnosticOutput message until the client closes it.
func (s *server) handleDiagnosisStream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	for {
		var in diagnosis.DiagnosticInput
		if err := wsjson.Read(ctx, c, &in); err != nil {
			if !isClientClose(err) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}

		if err := in.Validate(); err != nil {
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}

		res, err := s.svc.DiagnoseLevel(ctx, in)
		if err != nil {
			slog.Error("streamed diagnosis failed", "topic", in.CurrentTopicCode, "error", err)
			c.Close(websocket.StatusInternalError, "diagnosis failed")
			return
		}

		if err := wsjson.Write(ctx, c, res.Value); err != nil {
			slog.Warn("websocket write failed", "diagnosis_id", res.ID, "error", err)
			return
		}
	}
}

func isClientClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
