package services

import (
  "context"

  "github.com/google/uuid"

  "github.com/yungbote/medtrain-backend/internal/clients/redis"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/sse"
)

// Notifier pushes pipeline progress to connected clients. Implementations
// must never block the pipeline.
type Notifier interface {
  VideoStatusChanged(ownerID, videoID uuid.UUID, status, reason string)
  ImportJobProgress(ownerID, jobID uuid.UUID, status string, total, processed, successful, failed int)
}

type sseNotifier struct {
  log *logger.Logger
  hub *sse.SSEHub
  bus redis.SSEBus
}

// NewSSENotifier broadcasts locally through the hub and, when a Redis bus
// is configured, publishes to other replicas as well.
func NewSSENotifier(log *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) Notifier {
  return &sseNotifier{
    log: log.With("service", "SSENotifier"),
    hub: hub,
    bus: bus,
  }
}

func (n *sseNotifier) send(msg sse.SSEMessage) {
  if n.hub != nil {
    n.hub.Broadcast(msg)
  }
  if n.bus != nil {
    if err := n.bus.Publish(context.Background(), msg); err != nil {
      n.log.Warn("Failed to publish SSE message to bus", "error", err)
    }
  }
}

func (n *sseNotifier) VideoStatusChanged(ownerID, videoID uuid.UUID, status, reason string) {
  event := sse.SSEEventVideoStatusChanged
  if reason != "" {
    event = sse.SSEEventVideoIndexingFailed
  }
  n.send(sse.SSEMessage{
    Channel: sse.UserChannel(ownerID),
    Event:   event,
    Data: map[string]any{
      "video_id": videoID,
      "status":   status,
      "reason":   reason,
    },
  })
}

func (n *sseNotifier) ImportJobProgress(ownerID, jobID uuid.UUID, status string, total, processed, successful, failed int) {
  event := sse.SSEEventImportJobProgress
  if status == "completed" || status == "failed" {
    event = sse.SSEEventImportJobCompleted
  }
  n.send(sse.SSEMessage{
    Channel: sse.UserChannel(ownerID),
    Event:   event,
    Data: map[string]any{
      "job_id":     jobID,
      "status":     status,
      "total":      total,
      "processed":  processed,
      "successful": successful,
      "failed":     failed,
    },
  })
}
