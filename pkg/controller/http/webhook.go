package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/seito-lab/taskfunnel/pkg/domain/model/chat"
	"github.com/seito-lab/taskfunnel/pkg/utils/async"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// maxUpdateBytes bounds the inbound payload size
const maxUpdateBytes = 1 << 20

// IngestUseCase is the slice of the usecase layer the webhook needs
type IngestUseCase interface {
	HandleUpdate(ctx context.Context, update *chat.Update) error
}

// WebhookHandler receives chat updates over HTTP and feeds them into the
// ingestion pipeline
type WebhookHandler struct {
	uc IngestUseCase
}

// NewWebhookHandler creates a webhook handler around the ingestion use case
func NewWebhookHandler(uc IngestUseCase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

// ServeHTTP acknowledges every delivery with 200 and processes the update
// asynchronously. The chat platform redelivers on non-200 responses, and a
// malformed or failing update would be redelivered forever, so problems are
// logged instead of surfaced.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		logger.Warn("failed to read webhook body", "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	var update chat.Update
	if err := json.Unmarshal(body, &update); err != nil {
		logger.Warn("dropping malformed webhook payload", "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)

	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := h.uc.HandleUpdate(ctx, &update); err != nil {
			return goerr.Wrap(err, "failed to handle chat update",
				goerr.V("update_id", update.UpdateID),
			)
		}
		return nil
	})
}
