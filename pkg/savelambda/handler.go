// Package savelambda serves the save endpoint from AWS Lambda behind an API
// Gateway proxy integration. Requests are replayed through the savehandler
// component, so decoding and status rules match the HTTP endpoint.
package savelambda

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/goliatone/go-frontedit/components/savehandler"
	"github.com/goliatone/go-frontedit/pkg/model"
)

const (
	// PrincipalKey is the authorizer context key naming the user.
	PrincipalKey = "principalId"
	// PermissionsKey is the authorizer context key listing comma separated
	// permissions.
	PermissionsKey = "permissions"
	// SessionKey is the authorizer context key carrying the session id used
	// for CSRF checks.
	SessionKey = "session"
)

type authorizerKey struct{}

// Handler processes API Gateway proxy events.
type Handler struct {
	save   savehandler.Options
	logger *slog.Logger
}

// NewHandler creates a handler around saver. Extra savehandler options are
// applied after the actor and session resolvers, so callers may replace them.
func NewHandler(saver savehandler.Saver, logger *slog.Logger, fns ...savehandler.OptionFn) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	base := []savehandler.OptionFn{
		savehandler.WithSaver(saver),
		savehandler.WithActor(ActorFromRequest),
		savehandler.WithSession(SessionFromRequest),
	}
	return &Handler{
		save:   savehandler.NewOptions(append(base, fns...)...),
		logger: logger,
	}
}

// HandleRequest runs one save request. Protocol errors become 4xx responses;
// the returned error is reserved for events that cannot be replayed.
func (h *Handler) HandleRequest(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := toHTTPRequest(ctx, event)
	if err != nil {
		h.logger.Error("savelambda: invalid event", "requestID", event.RequestContext.RequestID, "error", err)
		return events.APIGatewayProxyResponse{}, err
	}

	rec := httptest.NewRecorder()
	savehandler.HandlerWithOptions(h.save).ServeHTTP(rec, req)

	h.logger.Info("savelambda: handled",
		"requestID", event.RequestContext.RequestID,
		"status", rec.Code,
	)
	return toProxyResponse(rec), nil
}

func toHTTPRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = string(decoded)
	}

	method := event.HTTPMethod
	if method == "" {
		method = http.MethodPost
	}
	path := event.Path
	if path == "" {
		path = "/"
	}
	ctx = context.WithValue(ctx, authorizerKey{}, event.RequestContext.Authorizer)
	req, err := http.NewRequestWithContext(ctx, method, path, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for name, values := range event.MultiValueHeaders {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	for name, value := range event.Headers {
		if req.Header.Get(name) == "" {
			req.Header.Set(name, value)
		}
	}
	return req, nil
}

func toProxyResponse(rec *httptest.ResponseRecorder) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(rec.Header()))
	for name := range rec.Header() {
		headers[name] = rec.Header().Get(name)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: rec.Code,
		Headers:    headers,
		Body:       rec.Body.String(),
	}
}

func authorizer(r *http.Request) map[string]any {
	values, _ := r.Context().Value(authorizerKey{}).(map[string]any)
	return values
}

func contextString(values map[string]any, key string) string {
	switch v := values[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// ActorFromRequest builds the actor from the API Gateway authorizer context.
// Requests without a principal act as guests.
func ActorFromRequest(r *http.Request) model.Actor {
	values := authorizer(r)
	name := contextString(values, PrincipalKey)
	if name == "" {
		return model.Guest
	}
	var permissions []string
	for _, perm := range strings.Split(contextString(values, PermissionsKey), ",") {
		if perm = strings.TrimSpace(perm); perm != "" {
			permissions = append(permissions, perm)
		}
	}
	return model.StaticActor{Username: name, Permissions: permissions}
}

// SessionFromRequest returns the session id from the authorizer context.
func SessionFromRequest(r *http.Request) string {
	return contextString(authorizer(r), SessionKey)
}
