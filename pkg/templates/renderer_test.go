package templates

import (
	"strings"
	"testing"
)

func TestNewRenderer(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	if renderer == nil {
		t.Fatal("Expected non-nil renderer")
	}

	expected := []PromptTemplate{
		TopicQuestionTemplate,
		AnswerValidationTemplate,
		JudgeRetryTemplate,
		DepthEvaluationTemplate,
		ProbingTemplate,
		FinalFeedbackTemplate,
	}

	for _, name := range expected {
		if _, err := renderer.Render(name, &PromptData{}); err != nil {
			t.Errorf("Failed to render template %s: %v", name, err)
		}
	}

	if got := len(renderer.AvailableTemplates()); got != len(expected) {
		t.Errorf("Expected %d templates, got %d", len(expected), got)
	}
}

func TestRenderTopicQuestion(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	data := &PromptData{
		Theme:            "Company Culture & Values",
		Topic:            "Mission and Vision",
		ExampleQuestions: FormatQuestions([]string{"What is our mission?", "Where are we going?"}),
	}

	result, err := renderer.Render(TopicQuestionTemplate, data)
	if err != nil {
		t.Fatalf("Failed to render topic question template: %v", err)
	}

	if strings.Contains(result, "{{") {
		t.Error("Rendered prompt still contains template placeholders")
	}
	if !strings.Contains(result, data.Theme) {
		t.Error("Prompt should contain the theme")
	}
	if !strings.Contains(result, data.Topic) {
		t.Error("Prompt should contain the topic")
	}
	if !strings.Contains(result, "- What is our mission?") {
		t.Error("Prompt should contain the example questions as bullets")
	}
}

func TestRenderValidationAsksForJSON(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	result, err := renderer.Render(AnswerValidationTemplate, &PromptData{
		Question: "What does the team value most?",
		Answer:   "Shipping small and often.",
	})
	if err != nil {
		t.Fatalf("Failed to render validation template: %v", err)
	}

	if !strings.Contains(result, `"passed"`) {
		t.Error("Validation prompt should describe the passed field")
	}
	if !strings.Contains(result, `"feedback"`) {
		t.Error("Validation prompt should describe the feedback field")
	}
}

func TestRenderDepthEvaluationAsksForJSON(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	result, err := renderer.Render(DepthEvaluationTemplate, &PromptData{
		Topic:    "Product Knowledge",
		Question: "Walk me through the product.",
		Answer:   "It ingests events and builds dashboards.",
	})
	if err != nil {
		t.Fatalf("Failed to render depth template: %v", err)
	}

	if !strings.Contains(result, `"depth_sufficient"`) {
		t.Error("Depth prompt should describe the depth_sufficient field")
	}
}

func TestRenderJudgeRetryIncludesAttemptNote(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	result, err := renderer.Render(JudgeRetryTemplate, &PromptData{
		Question:  "What is our mission?",
		Answer:    "dunno",
		Feedback:  "The answer does not engage with the question.",
		RetryNote: " (Attempt 2/2)",
	})
	if err != nil {
		t.Fatalf("Failed to render judge retry template: %v", err)
	}

	if !strings.Contains(result, "(Attempt 2/2)") {
		t.Error("Retry prompt should carry the attempt note")
	}
	if !strings.Contains(result, "dunno") {
		t.Error("Retry prompt should quote the failed answer")
	}
}

func TestSystemPrompts(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	for _, name := range renderer.AvailableTemplates() {
		if renderer.SystemPrompt(name) == "" {
			t.Errorf("Template %s has no system prompt", name)
		}
	}

	if got := renderer.SystemPrompt(PromptTemplate("missing.tpl.md")); got != "" {
		t.Errorf("Unknown template should have empty system prompt, got %q", got)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	if _, err := renderer.Render(PromptTemplate("missing.tpl.md"), &PromptData{}); err == nil {
		t.Error("Expected error for unknown template")
	}
}

func TestFormatQuestions(t *testing.T) {
	got := FormatQuestions([]string{"One?", "Two?"})
	want := "- One?\n- Two?"
	if got != want {
		t.Errorf("FormatQuestions = %q, want %q", got, want)
	}

	if got := FormatQuestions(nil); got != "" {
		t.Errorf("FormatQuestions(nil) = %q, want empty", got)
	}
}
