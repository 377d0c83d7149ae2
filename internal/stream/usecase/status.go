package usecase

import (
	"context"

	"logstream-srv/internal/stream"
	ws "logstream-srv/internal/websocket"
)

// publishStatus pushes a stream_status frame to the connection's project.
func (uc *implUseCase) publishStatus(ctx context.Context, rt *runtime) {
	if uc.deps.Broadcaster == nil {
		return
	}
	s := rt.snapshot()
	if s.ProjectID == "" {
		return
	}
	frame := ws.NewFrame(ws.MessageTypeStreamStatus, statusData(s))
	if err := uc.deps.Broadcaster.Broadcast(ctx, ws.ProjectTopic(s.ProjectID), frame); err != nil {
		uc.l.Warnf(ctx, "internal.stream.usecase.publishStatus.Broadcast: connection=%s: %v", s.ConnectionID, err)
	}
}

func statusData(s stream.Runtime) ws.StreamStatusData {
	return ws.StreamStatusData{
		ConnectionID: s.ConnectionID,
		ProjectID:    s.ProjectID,
		Status:       string(s.Status),
		LastSyncAt:   s.LastSync,
		LastError:    s.LastError,
	}
}
