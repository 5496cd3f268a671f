package handlers

import (
  "github.com/gin-gonic/gin"

  "github.com/yungbote/medtrain-backend/internal/sse"
)

type SSEHandler struct {
  hub *sse.SSEHub
}

func NewSSEHandler(hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{hub: hub}
}

// SSEStream subscribes the caller to their own channel and streams until
// the connection drops.
func (sh *SSEHandler) SSEStream(c *gin.Context) {
  userID, ok := callerID(c)
  if !ok {
    return
  }

  client := sh.hub.NewSSEClient(userID)
  sh.hub.AddChannel(client, sse.UserChannel(userID))
  defer sh.hub.CloseClient(client)

  sh.hub.ServeHTTP(c.Writer, c.Request, client)
}
