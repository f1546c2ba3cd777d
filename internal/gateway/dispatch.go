// Package gateway adapts API Gateway proxy events onto the contract
// service. It is a thin translator: routing and envelope handling only,
// with all business logic delegated to contractservice.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/ternlund/datapact/internal/api"
	"github.com/ternlund/datapact/internal/contract"
	"github.com/ternlund/datapact/internal/contractservice"
	"github.com/ternlund/datapact/internal/validate"
)

var corsHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type",
	"Access-Control-Allow-Methods": "POST, GET, OPTIONS, PUT, DELETE",
}

// Dispatcher routes gateway proxy events to the shared service.
type Dispatcher struct {
	svc *contractservice.Service
}

// New creates a dispatcher.
func New(svc *contractservice.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error("response encode failed", slog.String("error", err.Error()))
		payload = []byte(`{"error":"Internal Server Error","message":"An unexpected error occurred"}`)
		status = http.StatusInternalServerError
	}
	headers := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(payload),
	}
}

func respondError(status int, kind, message string) events.APIGatewayProxyResponse {
	return respond(status, map[string]string{"error": kind, "message": message})
}

// normalizePath strips a deployment stage prefix so routes match
// regardless of how the API is staged.
func normalizePath(path string) string {
	for _, stage := range []string{"/dev", "/prod", "/staging"} {
		if strings.HasPrefix(path, stage+"/") {
			return strings.TrimPrefix(path, stage)
		}
	}
	return path
}

// Handle is the single entry point for gateway events.
func (d *Dispatcher) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected panic in dispatcher", slog.Any("panic", r))
			resp = respondError(http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
			err = nil
		}
	}()

	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, map[string]string{"message": "OK"}), nil
	}

	path := req.Resource
	if path == "" {
		path = req.Path
	}
	path = normalizePath(path)
	id := req.PathParameters["contract_id"]

	slog.Info("dispatching gateway event",
		slog.String("method", req.HTTPMethod),
		slog.String("path", path),
		slog.String("contract_id", id))

	switch {
	case req.HTTPMethod == http.MethodPost && path == "/contracts":
		return d.create(ctx, req.Body), nil
	case req.HTTPMethod == http.MethodGet && path == "/contracts":
		return d.list(ctx), nil
	case req.HTTPMethod == http.MethodPost && path == "/contracts/save":
		return d.save(ctx, req.Body), nil
	case req.HTTPMethod == http.MethodGet && isContractPath(path) && id != "":
		return d.get(ctx, id), nil
	case req.HTTPMethod == http.MethodPut && isContractPath(path) && id != "":
		return d.update(ctx, id, req.Body), nil
	case req.HTTPMethod == http.MethodDelete && isContractPath(path) && id != "":
		return d.remove(ctx, id), nil
	case req.HTTPMethod == http.MethodPost && path == "/generate":
		return d.generate(ctx, req.Body), nil
	case req.HTTPMethod == http.MethodPost && path == "/generate/stream":
		return d.generateAggregated(ctx, req.Body), nil
	case req.HTTPMethod == http.MethodGet && path == "/health":
		return respond(http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   api.ServiceName,
		}), nil
	}

	slog.Warn("no matching route",
		slog.String("method", req.HTTPMethod),
		slog.String("path", path))
	return respondError(http.StatusNotFound, "Not Found", "Invalid route or method"), nil
}

func isContractPath(path string) bool {
	return path == "/contracts/{contract_id}" || (strings.HasPrefix(path, "/contracts/") && path != "/contracts/save")
}

func decodeEventBody(body string) (map[string]any, error) {
	return validate.DecodeBody([]byte(body))
}

func (d *Dispatcher) create(ctx context.Context, body string) events.APIGatewayProxyResponse {
	obj, err := decodeEventBody(body)
	if err != nil {
		return respondError(http.StatusBadRequest, "Bad Request", err.Error())
	}
	in, err := validate.ExtractInput(obj)
	if err != nil {
		return respondError(http.StatusBadRequest, "Bad Request", err.Error())
	}
	result, err := d.svc.Create(ctx, in.User, in.Request)
	if err != nil {
		slog.Error("contract creation failed", slog.String("error", err.Error()))
		return respondError(http.StatusInternalServerError, "Contract Creation Failed", err.Error())
	}
	return respond(http.StatusOK, result)
}

func (d *Dispatcher) save(ctx context.Context, body string) events.APIGatewayProxyResponse {
	obj, err := decodeEventBody(body)
	if err != nil {
		return respondError(http.StatusBadRequest, "Bad Request", err.Error())
	}
	user, _ := obj["user"].(string)
	request, _ := obj["request"].(string)
	content, _ := obj["content"].(string)
	if content == "" {
		content, _ = obj["yaml"].(string)
	}
	if user == "" || request == "" || content == "" {
		return respondError(http.StatusBadRequest, "Bad Request", "user, request, and content are required")
	}
	result, err := d.svc.Save(ctx, user, content)
	if err != nil {
		slog.Error("contract save failed", slog.String("error", err.Error()))
		return respondError(http.StatusInternalServerError, "Contract Save Failed", err.Error())
	}
	return respond(http.StatusOK, result)
}

func (d *Dispatcher) list(ctx context.Context) events.APIGatewayProxyResponse {
	records, err := d.svc.List(ctx)
	if err != nil {
		slog.Error("list contracts failed", slog.String("error", err.Error()))
		return respondError(http.StatusInternalServerError, "Fetch Failed", "failed to fetch contracts")
	}
	return respond(http.StatusOK, map[string]any{"contracts": records})
}

func (d *Dispatcher) get(ctx context.Context, id string) events.APIGatewayProxyResponse {
	detail, err := d.svc.Get(ctx, id)
	if err != nil {
		return respondError(http.StatusNotFound, "Not Found", err.Error())
	}
	return respond(http.StatusOK, detail)
}

func (d *Dispatcher) update(ctx context.Context, id, body string) events.APIGatewayProxyResponse {
	obj, err := decodeEventBody(body)
	if err != nil {
		return respondError(http.StatusBadRequest, "Bad Request", err.Error())
	}
	patch, err := contract.DecodePatch(obj)
	if err != nil {
		return respondError(http.StatusBadRequest, "Update Failed", err.Error())
	}
	detail, err := d.svc.Update(ctx, id, patch)
	if err != nil {
		slog.Error("contract update failed", slog.String("contract_id", id), slog.String("error", err.Error()))
		return respondError(http.StatusBadRequest, "Update Failed", err.Error())
	}
	return respond(http.StatusOK, detail)
}

func (d *Dispatcher) remove(ctx context.Context, id string) events.APIGatewayProxyResponse {
	if err := d.svc.Delete(ctx, id); err != nil {
		slog.Error("contract delete failed", slog.String("contract_id", id), slog.String("error", err.Error()))
		return respondError(http.StatusBadRequest, "Delete Failed", err.Error())
	}
	return respond(http.StatusOK, map[string]string{"message": "Contract " + id + " deleted successfully"})
}

func (d *Dispatcher) generate(ctx context.Context, body string) events.APIGatewayProxyResponse {
	obj, err := decodeEventBody(body)
	if err != nil {
		return respondError(http.StatusBadRequest, "Bad Request", err.Error())
	}
	description, _ := obj["description"].(string)
	if description == "" {
		return respondError(http.StatusBadRequest, "Bad Request", "Description is required")
	}
	content, err := d.svc.Generate(ctx, description)
	if err != nil {
		slog.Error("contract generation failed", slog.String("error", err.Error()))
		return respondError(http.StatusInternalServerError, "Contract Generation Failed", err.Error())
	}
	return respond(http.StatusOK, map[string]string{
		"content": content,
		"message": "Contract generated successfully",
	})
}

// generateAggregated serves the streaming route over a transport that
// cannot stream: fragments are drained in order and returned as one
// plain-text body.
func (d *Dispatcher) generateAggregated(ctx context.Context, body string) events.APIGatewayProxyResponse {
	textResponse := func(status int, text string) events.APIGatewayProxyResponse {
		resp := respond(status, nil)
		resp.Headers["Content-Type"] = "text/plain; charset=utf-8"
		resp.Body = text
		return resp
	}
	errorFragment := func(msg string) string {
		payload, _ := json.Marshal(map[string]string{"error": msg})
		return string(payload)
	}

	obj, err := decodeEventBody(body)
	if err != nil {
		return textResponse(http.StatusOK, errorFragment(err.Error()))
	}
	description, _ := obj["description"].(string)
	if description == "" {
		return textResponse(http.StatusOK, errorFragment("Description is required"))
	}

	stream, err := d.svc.GenerateStream(ctx, description)
	if err != nil {
		return textResponse(http.StatusOK, errorFragment(err.Error()))
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		fragment, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				sb.WriteString(errorFragment(err.Error()))
			}
			return textResponse(http.StatusOK, sb.String())
		}
		sb.WriteString(fragment)
	}
}
