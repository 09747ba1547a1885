package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/smsgate/smsgate/internal/core"
	"github.com/smsgate/smsgate/internal/server/middleware"
)

// Sender runs one send attempt end to end.
type Sender interface {
	Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error)
}

// SMSResponse is the body returned for an accepted send.
type SMSResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// SMSHandler serves /api/sms. Parameters come from the query string or a
// form body: phone, sender and text.
type SMSHandler struct {
	sender Sender
}

// NewSMSHandler returns a handler that delegates to sender.
func NewSMSHandler(sender Sender) *SMSHandler {
	return &SMSHandler{sender: sender}
}

func (h *SMSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := core.SendRequest{
		Destination: r.FormValue("phone"),
		SenderLabel: r.FormValue("sender"),
		Body:        r.FormValue("text"),
		RequestID:   middleware.GetRequestID(r.Context()),
	}

	result, err := h.sender.Send(r.Context(), req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SMSResponse{
		Success:   true,
		Message:   "SMS sent successfully",
		MessageID: result.MessageID,
		Recipient: result.Recipient,
		Sender:    result.Sender,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
	})
}
