package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// OracleClient calls the extraction oracle over HTTP: it posts the document
// text and decodes the structured response. The server side wraps the
// actual model invocation; this adapter knows nothing about the model
// beyond its configured identifier.
type OracleClient struct {
	endpoint string
	modelID  string
	client   *http.Client
}

type oracleRequest struct {
	Document string `json:"document"`
	ModelID  string `json:"model_id,omitempty"`
}

// NewOracleClient builds the adapter. The http.Client carries no timeout of
// its own; each Extract call is bounded by its context so the pipeline
// controls the per-attempt wall clock.
func NewOracleClient(endpoint, modelID string) *OracleClient {
	return &OracleClient{
		endpoint: endpoint,
		modelID:  modelID,
		client:   &http.Client{},
	}
}

func (c *OracleClient) Extract(ctx context.Context, documentText string) (*wage.Extraction, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(oracleRequest{Document: documentText, ModelID: c.modelID})
	if err != nil {
		return nil, &Error{Msg: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	logger.Logger.Debug().
		Str("req_id", reqID).
		Int("document_bytes", len(documentText)).
		Msg("Calling extraction oracle")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Msg: "oracle unreachable", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Msg: "read oracle response", Transient: true, Err: err}
	}

	logger.Logger.Debug().
		Str("req_id", reqID).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("Extraction oracle responded")

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &Error{
			Msg:       fmt.Sprintf("oracle returned status %d", resp.StatusCode),
			Transient: true,
		}
	default:
		return nil, &Error{Msg: fmt.Sprintf("oracle returned status %d", resp.StatusCode)}
	}

	return Decode(raw)
}
