package appsscript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mamadbah2/farebook/internal/config"
	"github.com/mamadbah2/farebook/internal/domain/models"
)

// Client exposes the action calls of the spreadsheet web app.
type Client interface {
	Call(ctx context.Context, req models.ActionRequest, out interface{}) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	url        string
}

// ScriptError is a well-formed {"status":"error"} answer from the web app.
type ScriptError struct {
	Action  string
	Message string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("apps script %s: %s", e.Action, e.Message)
}

// NewClient builds an Apps Script client from configuration.
func NewClient(cfg config.AppsScriptConfig) *APIClient {
	restyClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &APIClient{
		httpClient: restyClient,
		url:        cfg.URL,
	}
}

// envelopeSchema is the shape every web app answer must have before its data
// is trusted.
var envelopeSchema = jsonschema.MustCompileString("envelope.json", `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string", "minLength": 1},
		"message": {"type": ["string", "null"]}
	}
}`)

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Call posts the action and decodes the "data" member into out when out is non-nil.
func (c *APIClient) Call(ctx context.Context, req models.ActionRequest, out interface{}) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("apps script %s: %w", req.Action, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("apps script %s: http %d: %s", req.Action, resp.StatusCode(), truncate(resp.String(), 200))
	}

	var doc interface{}
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		// The web app answers with an HTML error page when the script throws.
		return fmt.Errorf("apps script %s: decode response: %w", req.Action, err)
	}
	if err := envelopeSchema.Validate(doc); err != nil {
		return fmt.Errorf("apps script %s: unexpected response: %w", req.Action, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("apps script %s: decode response: %w", req.Action, err)
	}

	if !strings.EqualFold(env.Status, models.ActionStatusSuccess) {
		message := env.Message
		if message == "" {
			message = "unknown error"
		}
		return &ScriptError{Action: req.Action, Message: message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("apps script %s: decode data: %w", req.Action, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
