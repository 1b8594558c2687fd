package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/gemini"
	"github.com/academiaalbert/academia-backend/pkg/logger"
)

const maxPromptRunes = 2000

// Request is one question sent to the assistant.
type Request struct {
	Prompt string `json:"prompt" validate:"required"`
}

// Reply is the assistant's answer.
type Reply struct {
	Text string `json:"text"`
}

type generator interface {
	GenerateReply(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// Service answers visitor questions through the generative model.
type Service interface {
	Ask(ctx context.Context, req Request) (*Reply, error)
}

type service struct {
	gen         generator
	instruction string
	timeout     time.Duration
	logg        *logger.Logger
}

// NewService accepts a nil generator; Ask then fails with a dependency error.
func NewService(gen generator, systemInstruction string, timeout time.Duration, logg *logger.Logger) (Service, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("chat timeout must be positive")
	}
	return &service{gen: gen, instruction: systemInstruction, timeout: timeout, logg: logg}, nil
}

func (s *service) Ask(ctx context.Context, req Request) (*Reply, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}
	if utf8.RuneCountInString(prompt) > maxPromptRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("prompt exceeds %d characters", maxPromptRunes))
	}
	if s.gen == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat assistant is not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.gen.GenerateReply(callCtx, prompt, s.instruction)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "chat.generate_failed")
		}
		if errors.Is(err, gemini.ErrEmptyReply) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assistant returned no answer")
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "assistant timed out")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodeDependency, err, "assistant unavailable")
	}
	return &Reply{Text: text}, nil
}
