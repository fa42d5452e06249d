package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/portfolio"
	"portfolio-chat/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	methodNotAllowed  = "METHOD_NOT_ALLOWED"
)

type ChatUseCase interface {
	SubmitTurn(ctx context.Context, in usecase.TurnInput) (usecase.TurnOutput, error)
	Transcript(ctx context.Context, sessionID string) (domain.Session, error)
}

type ProjectUseCase interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (usecase.ProjectDetail, error)
	OpenFromHash(ctx context.Context, hash string) (usecase.ProjectDetail, error)
}

type Handler struct {
	chat     ChatUseCase
	projects ProjectUseCase
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID    string               `json:"sessionId"`
	Appended     []domain.ChatMessage `json:"appended"`
	InputEnabled bool                 `json:"inputEnabled"`
}

type transcriptResponse struct {
	SessionID    string               `json:"sessionId"`
	Messages     []domain.ChatMessage `json:"messages"`
	InputEnabled bool                 `json:"inputEnabled"`
}

type projectCard struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	ShortDesc string `json:"shortDesc"`
	Hash      string `json:"hash"`
}

type projectsResponse struct {
	Projects []projectCard `json:"projects"`
}

type projectDetailResponse struct {
	domain.Project
	Hash         string `json:"hash"`
	InquiryURL   string `json:"inquiryUrl"`
	InquiryBlurb string `json:"inquiryBlurb"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(chat ChatUseCase, projects ProjectUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if projects == nil {
		return nil, errors.New("handler: project use case must not be nil")
	}
	return &Handler{chat: chat, projects: projects}, nil
}

// Handle routes an API Gateway proxy request. Failures are reported in the
// response; the returned error is always nil so Lambda does not retry.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := slog.With("correlation_id", correlationID, "method", req.HTTPMethod, "path", req.Path)

	resp := h.route(ctx, logger, req)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[correlationHeader] = correlationID

	logger.InfoContext(ctx, "request handled", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (h *Handler) route(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	segments := pathSegments(req.Path)
	method := strings.ToUpper(req.HTTPMethod)

	switch {
	case len(segments) == 1 && segments[0] == "chat":
		if method != http.MethodPost {
			return notAllowed(http.MethodPost)
		}
		return h.postChat(ctx, logger, req)
	case len(segments) == 2 && segments[0] == "chat":
		if method != http.MethodGet {
			return notAllowed(http.MethodGet)
		}
		return h.getTranscript(ctx, logger, segments[1])
	case len(segments) == 1 && segments[0] == "projects":
		if method != http.MethodGet {
			return notAllowed(http.MethodGet)
		}
		if hash, ok := req.QueryStringParameters["hash"]; ok {
			return h.openHash(ctx, logger, hash)
		}
		return h.listProjects(ctx, logger)
	case len(segments) == 2 && segments[0] == "projects":
		if method != http.MethodGet {
			return notAllowed(http.MethodGet)
		}
		return h.getProject(ctx, logger, segments[1])
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound), Reason: "route_not_found"})
	}
}

func (h *Handler) postChat(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body, err := requestBody(req)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body_encoding"})
	}
	var in chatRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_json"})
	}

	out, err := h.chat.SubmitTurn(ctx, usecase.TurnInput{SessionID: in.SessionID, Text: in.Message})
	if err != nil {
		return errorToResponse(ctx, logger, err)
	}
	appended := out.Appended
	if appended == nil {
		appended = []domain.ChatMessage{}
	}
	return jsonResponse(http.StatusOK, chatResponse{
		SessionID:    out.SessionID,
		Appended:     appended,
		InputEnabled: out.InputEnabled,
	})
}

func (h *Handler) getTranscript(ctx context.Context, logger *slog.Logger, sessionID string) events.APIGatewayProxyResponse {
	sess, err := h.chat.Transcript(ctx, sessionID)
	if err != nil {
		return errorToResponse(ctx, logger, err)
	}
	messages := sess.Messages
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return jsonResponse(http.StatusOK, transcriptResponse{
		SessionID:    sess.ID,
		Messages:     messages,
		InputEnabled: sess.InputEnabled(),
	})
}

func (h *Handler) listProjects(ctx context.Context, logger *slog.Logger) events.APIGatewayProxyResponse {
	projects, err := h.projects.ListProjects(ctx)
	if err != nil {
		return errorToResponse(ctx, logger, err)
	}
	cards := make([]projectCard, 0, len(projects))
	for _, p := range projects {
		cards = append(cards, projectCard{
			ID:        p.ID,
			Title:     p.Title,
			Category:  p.Category,
			ShortDesc: p.ShortDesc,
			Hash:      portfolio.ProjectHash(p.ID),
		})
	}
	return jsonResponse(http.StatusOK, projectsResponse{Projects: cards})
}

func (h *Handler) getProject(ctx context.Context, logger *slog.Logger, id string) events.APIGatewayProxyResponse {
	detail, err := h.projects.GetProject(ctx, id)
	if err != nil {
		return errorToResponse(ctx, logger, err)
	}
	return jsonResponse(http.StatusOK, detailResponse(detail))
}

func (h *Handler) openHash(ctx context.Context, logger *slog.Logger, hash string) events.APIGatewayProxyResponse {
	detail, err := h.projects.OpenFromHash(ctx, hash)
	if err != nil {
		return errorToResponse(ctx, logger, err)
	}
	return jsonResponse(http.StatusOK, detailResponse(detail))
}

func detailResponse(d usecase.ProjectDetail) projectDetailResponse {
	return projectDetailResponse{
		Project:      d.Project,
		Hash:         d.Hash,
		InquiryURL:   d.InquiryURL,
		InquiryBlurb: d.InquiryBlurb,
	}
}

func errorToResponse(ctx context.Context, logger *slog.Logger, err error) events.APIGatewayProxyResponse {
	ucErr, ok := usecase.AsError(err)
	if !ok {
		logger.ErrorContext(ctx, "unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)})
	}

	status := statusFor(ucErr.Code)
	if ucErr.Internal() {
		logger.ErrorContext(ctx, "request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	} else {
		logger.WarnContext(ctx, "request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
	}
	return jsonResponse(status, errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorTurnInFlight:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func notAllowed(allow string) events.APIGatewayProxyResponse {
	resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: methodNotAllowed})
	resp.Headers["Allow"] = allow
	return resp
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

func pathSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
