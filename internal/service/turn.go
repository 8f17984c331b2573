package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/gogo/fraudgpt/internal/adapter/llm"
	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
	"github.com/xiaot623/gogo/fraudgpt/internal/imageproc"
	"github.com/xiaot623/gogo/fraudgpt/policy"
)

// imagePlaceholder stands in for image-only messages in the engine context.
const imagePlaceholder = "[image]"

// SendTurn runs one chat turn: validate, persist the user message, ask the engine,
// persist the answer and touch the session.
//
// Nothing is written when the session is missing or the input is rejected. Once the
// user message is stored it is kept even if a later step fails, and the remaining
// steps no longer observe cancellation of ctx.
func (s *Service) SendTurn(ctx context.Context, req domain.TurnRequest) (result *domain.TurnResult, err error) {
	s.turns.Add(1)
	defer s.turns.Done()

	log := s.log.WithField("session_id", req.SessionID)
	defer func() {
		outcome := domain.Outcome(err)
		s.metrics.ObserveTurn(outcome)
		if err != nil {
			log.WithError(err).WithField("outcome", outcome).Warn("turn failed")
		}
	}()

	session, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, domain.StoreFailure("get session", err)
	}
	if session == nil {
		return nil, domain.NotFound("send turn", req.SessionID)
	}

	var image *imageproc.Normalized
	if req.ImageBase64 != "" {
		image, err = s.normalizer.Normalize(req.ImageBase64)
		if err != nil {
			return nil, domain.InvalidInput("normalize image", err)
		}
	}
	if err := s.admit(ctx, req, image); err != nil {
		return nil, err
	}

	var history []domain.Message
	if s.config.ContextMessages > 0 {
		history, err = s.store.ListRecentMessages(ctx, req.SessionID, s.config.ContextMessages)
		if err != nil {
			return nil, domain.StoreFailure("load context", err)
		}
	}

	userMsg := &domain.Message{
		ID:        s.newID(),
		SessionID: req.SessionID,
		Role:      domain.RoleUser,
		Content:   req.Message,
		ImageURL:  req.ImageBase64,
		Timestamp: s.now().UTC(),
	}
	if err := s.store.InsertMessage(ctx, userMsg); err != nil {
		return nil, domain.StoreFailure("save user message", err)
	}
	s.publishMessage(userMsg)

	detached := context.WithoutCancel(ctx)
	resp, err := s.generate(detached, req, history, image)
	if err != nil {
		return nil, domain.UpstreamFailure("generate", err)
	}
	log.WithFields(logrus.Fields{
		"provider":      s.engine.Name(),
		"model":         resp.Model,
		"total_tokens":  resp.Usage.TotalTokens,
		"history_count": len(history),
		"has_image":     image != nil,
	}).Debug("engine answered")

	ts := s.now().UTC()
	if ts.Before(userMsg.Timestamp) {
		ts = userMsg.Timestamp
	}
	assistantMsg := &domain.Message{
		ID:        s.newID(),
		SessionID: req.SessionID,
		Role:      domain.RoleAssistant,
		Content:   resp.Content,
		Timestamp: ts,
	}
	if err := s.store.InsertMessage(detached, assistantMsg); err != nil {
		return nil, domain.StoreFailure("save assistant message", err)
	}
	if err := s.store.TouchSession(detached, req.SessionID, ts); err != nil {
		return nil, domain.StoreFailure("touch session", err)
	}
	s.publishMessage(assistantMsg)

	log.WithField("message_id", assistantMsg.ID).Info("turn completed")
	return &domain.TurnResult{
		Response:  assistantMsg.Content,
		SessionID: req.SessionID,
		MessageID: assistantMsg.ID,
	}, nil
}

func (s *Service) admit(ctx context.Context, req domain.TurnRequest, image *imageproc.Normalized) error {
	if s.admission == nil {
		return nil
	}
	input := policy.Input{
		SessionID:    req.SessionID,
		Message:      req.Message,
		MessageChars: utf8.RuneCountInString(req.Message),
		HasImage:     image != nil,
		Limits: policy.Limits{
			MaxMessageChars: s.config.MaxMessageChars,
			MaxImageBytes:   s.config.MaxImageBytes,
		},
	}
	if image != nil {
		input.ImageBytes = image.SourceBytes
	}

	reasons, err := s.admission.Evaluate(ctx, input)
	if err != nil {
		return domain.NewError(domain.KindUnknown, "evaluate policy", err)
	}
	if len(reasons) > 0 {
		return domain.InvalidInput("admit turn", fmt.Errorf("%w: %s", domain.ErrTurnRejected, strings.Join(reasons, "; ")))
	}
	return nil
}

func (s *Service) generate(ctx context.Context, req domain.TurnRequest, history []domain.Message, image *imageproc.Normalized) (*llm.Response, error) {
	engineReq := &llm.Request{
		SessionID:    req.SessionID,
		SystemPrompt: FraudDetectionPrompt,
		History:      toEngineHistory(history),
		Text:         req.Message,
	}
	if image != nil {
		engineReq.Image = &llm.Image{MIMEType: image.MIMEType, Base64: image.Base64}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.EngineTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.engine.Generate(ctx, engineReq)
	s.metrics.ObserveEngine(s.engine.Name(), time.Since(start))
	return resp, err
}

func (s *Service) publishMessage(msg *domain.Message) {
	s.notifier.Publish(domain.Event{
		Type:      domain.EventTypeMessage,
		SessionID: msg.SessionID,
		Ts:        msg.Timestamp.UnixMilli(),
		Message:   msg,
	})
}

// toEngineHistory converts stored messages to text-only engine context.
func toEngineHistory(messages []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		if content == "" && m.HasImage() {
			content = imagePlaceholder
		}
		if content == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: content})
	}
	return out
}
