package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

type fakeModel struct {
	got  []genai.Part
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.got = parts
	return f.resp, f.err
}

func respWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestGemini_Generate(t *testing.T) {
	m := &fakeModel{resp: respWith(genai.Text("Tomato "), genai.Blob{MIMEType: "image/png"}, genai.Text("omelette\n"))}
	g := &Gemini{model: m}

	out, err := g.Generate(context.Background(), "egg, tomato")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Tomato omelette" {
		t.Fatalf("out = %q", out)
	}
	if len(m.got) != 1 || m.got[0] != genai.Text("egg, tomato") {
		t.Fatalf("prompt parts = %#v", m.got)
	}
}

func TestGemini_Errors(t *testing.T) {
	boom := errors.New("quota")
	g := &Gemini{model: &fakeModel{err: boom}}
	if _, err := g.Generate(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		respWith(genai.Blob{MIMEType: "image/png"}),
		respWith(genai.Text("   ")),
	} {
		if _, err := textFromResponse(resp); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("textFromResponse(%#v) err = %v", resp, err)
		}
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestGemini_CloseWithoutClient(t *testing.T) {
	if err := (&Gemini{}).Close(); err != nil {
		t.Fatal(err)
	}
}
