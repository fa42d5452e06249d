package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/markdown"
)

const (
	chatTemperature       = 0.2
	defaultMaxMessageLen  = 2000
	settleTimeout         = 5 * time.Second
	instrumentationName   = "portfolio-chat/usecase"
	outcomeReply          = "reply"
	outcomeEmptyReply     = "empty_reply"
	outcomeGenerateFailed = "generate_failed"

	// EmptyReplyText is shown when the model answers with no text.
	EmptyReplyText = "I'm sorry, I couldn't generate a response."
	// UnavailableText is shown when the model call fails.
	UnavailableText = "I apologize, but I'm having trouble connecting right now."
)

type Generator interface {
	Generate(ctx context.Context, req domain.ChatRequest) (string, error)
}

// SessionStore owns the transcript and the sending flag. BeginTurn must
// append the user message and set sending atomically, failing with
// domain.ErrTurnInFlight when sending is already set. SettleTurn appends the
// reply and clears sending. ReleaseTurn only clears sending and is safe to
// repeat.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (domain.Session, error)
	BeginTurn(ctx context.Context, sessionID string, msg domain.ChatMessage) error
	SettleTurn(ctx context.Context, sessionID string, msg domain.ChatMessage) error
	ReleaseTurn(ctx context.Context, sessionID string) error
}

type ChatService struct {
	site          *SiteCache
	gen           Generator
	store         SessionStore
	maxMessageLen int

	render func(string) string
	now    func() time.Time
	tracer trace.Tracer
	turns  metric.Int64Counter
}

type TurnInput struct {
	SessionID string
	Text      string
}

type TurnOutput struct {
	SessionID    string
	Appended     []domain.ChatMessage
	InputEnabled bool
}

func NewChatService(site *SiteCache, gen Generator, store SessionStore, maxMessageLen int) (*ChatService, error) {
	if site == nil {
		return nil, errors.New("usecase: site cache must not be nil")
	}
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}

	meter := otel.Meter(instrumentationName)
	turns, err := meter.Int64Counter(
		"portfolio_chat.turns",
		metric.WithDescription("Chat turns settled, by outcome."),
	)
	if err != nil {
		slog.Warn("turn counter unavailable", "err", err)
		turns = noop.Int64Counter{}
	}

	return &ChatService{
		site:          site,
		gen:           gen,
		store:         store,
		maxMessageLen: maxMessageLen,
		render:        markdown.Render,
		now:           func() time.Time { return time.Now().UTC() },
		tracer:        otel.Tracer(instrumentationName),
		turns:         turns,
	}, nil
}

// SubmitTurn runs one request/response cycle. Blank input is ignored. The
// remote call never fails the turn: errors and empty replies become fixed
// assistant messages.
func (s *ChatService) SubmitTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return s.unchanged(ctx, sessionID)
	}
	if len(text) > s.maxMessageLen {
		return TurnOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	instruction, err := s.site.SystemInstruction(ctx)
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "site_load_error", err)
	}
	if sessionID == "" {
		sessionID = newUUID()
	}

	ctx, span := s.tracer.Start(ctx, "chat.SubmitTurn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	userMsg := domain.ChatMessage{
		Role:      domain.RoleUser,
		Text:      text,
		HTML:      "<p>" + markdown.EscapeHTML(text) + "</p>",
		CreatedAt: s.now(),
	}
	if err := s.store.BeginTurn(ctx, sessionID, userMsg); err != nil {
		span.SetStatus(codes.Error, "begin turn")
		if errors.Is(err, domain.ErrTurnInFlight) {
			return TurnOutput{}, newError(ErrorTurnInFlight, "turn_in_flight", err)
		}
		return TurnOutput{}, newError(ErrorInternal, "session_begin_error", err)
	}

	reply, outcome := s.generate(ctx, domain.ChatRequest{
		Prompt:            text,
		SystemInstruction: instruction,
		Temperature:       chatTemperature,
	})
	span.SetAttributes(attribute.String("chat.outcome", outcome))

	assistantMsg := domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Text:      reply,
		HTML:      s.render(reply),
		CreatedAt: s.now(),
	}

	// The host may have cancelled ctx while the model call was pending; the
	// session must still leave the sending state.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if err := s.store.SettleTurn(settleCtx, sessionID, assistantMsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settle turn")
		if relErr := s.store.ReleaseTurn(settleCtx, sessionID); relErr != nil {
			slog.ErrorContext(ctx, "release turn failed", "session_id", sessionID, "err", relErr)
		}
		return TurnOutput{}, newError(ErrorInternal, "session_settle_error", err)
	}
	s.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	return TurnOutput{
		SessionID:    sessionID,
		Appended:     []domain.ChatMessage{userMsg, assistantMsg},
		InputEnabled: true,
	}, nil
}

// Transcript returns the session's messages in order. Unknown ids yield an
// empty session with input enabled.
func (s *ChatService) Transcript(ctx context.Context, sessionID string) (domain.Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return domain.Session{}, newError(ErrorInvalidInput, "empty_session_id", nil)
	}
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return domain.Session{}, newError(ErrorInternal, "session_read_error", err)
	}
	return sess, nil
}

func (s *ChatService) unchanged(ctx context.Context, sessionID string) (TurnOutput, error) {
	if sessionID == "" {
		return TurnOutput{InputEnabled: true}, nil
	}
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "session_read_error", err)
	}
	return TurnOutput{SessionID: sessionID, InputEnabled: sess.InputEnabled()}, nil
}

func (s *ChatService) generate(ctx context.Context, req domain.ChatRequest) (string, string) {
	text, err := s.gen.Generate(ctx, req)
	if err != nil {
		logAttrs := []any{"err", err}
		if status, ok := upstreamStatusCode(err); ok {
			logAttrs = append(logAttrs, "status", status)
		}
		slog.WarnContext(ctx, "generation failed", logAttrs...)
		trace.SpanFromContext(ctx).RecordError(err)
		return UnavailableText, outcomeGenerateFailed
	}
	if text == "" {
		return EmptyReplyText, outcomeEmptyReply
	}
	return text, outcomeReply
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
