package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/gemini"
)

type stubGenerator struct {
	reply       string
	err         error
	wait        bool
	instruction string
}

func (g *stubGenerator) GenerateReply(ctx context.Context, prompt, systemInstruction string) (string, error) {
	g.instruction = systemInstruction
	if g.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.reply, g.err
}

func TestAsk(t *testing.T) {
	gen := &stubGenerator{reply: "Temos cursos de Excel."}
	svc, err := NewService(gen, "Você é o Albert", time.Second, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	reply, err := svc.Ask(context.Background(), Request{Prompt: "  Que cursos há?  "})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Text != "Temos cursos de Excel." || gen.instruction != "Você é o Albert" {
		t.Fatalf("unexpected reply %+v / instruction %q", reply, gen.instruction)
	}
}

func TestAskValidation(t *testing.T) {
	svc, _ := NewService(&stubGenerator{}, "", time.Second, nil)
	if _, err := svc.Ask(context.Background(), Request{Prompt: "   "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	long := strings.Repeat("a", maxPromptRunes+1)
	if _, err := svc.Ask(context.Background(), Request{Prompt: long}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for long prompt, got %v", err)
	}
}

func TestAskFailures(t *testing.T) {
	unconfigured, _ := NewService(nil, "", time.Second, nil)
	if _, err := unconfigured.Ask(context.Background(), Request{Prompt: "oi"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	slow, _ := NewService(&stubGenerator{wait: true}, "", 20*time.Millisecond, nil)
	if _, err := slow.Ask(context.Background(), Request{Prompt: "oi"}); !pkgerrors.IsCode(err, pkgerrors.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	empty, _ := NewService(&stubGenerator{err: gemini.ErrEmptyReply}, "", time.Second, nil)
	if _, err := empty.Ask(context.Background(), Request{Prompt: "oi"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	broken, _ := NewService(&stubGenerator{err: errors.New("status 500")}, "", time.Second, nil)
	if _, err := broken.Ask(context.Background(), Request{Prompt: "oi"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
