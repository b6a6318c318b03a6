// Package templates provides prompt rendering for the interview stages.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// PromptData holds the data for prompt rendering. Stages fill only the
// fields their template uses; the rest stay zero.
type PromptData struct {
	Theme            string `json:"theme,omitempty"`
	Topic            string `json:"topic,omitempty"`
	ExampleQuestions string `json:"example_questions,omitempty"`
	Question         string `json:"question,omitempty"`
	Answer           string `json:"answer,omitempty"`
	Feedback         string `json:"feedback,omitempty"`
	Assessment       string `json:"assessment,omitempty"`
	RetryNote        string `json:"retry_note,omitempty"`
	ThemesText       string `json:"themes_text,omitempty"`
	ConversationText string `json:"conversation_text,omitempty"`
}

// PromptTemplate identifies one of the embedded stage prompts.
type PromptTemplate string

const (
	// TopicQuestionTemplate asks the oracle for an opening question on a topic.
	TopicQuestionTemplate PromptTemplate = "topic_question.tpl.md"
	// AnswerValidationTemplate asks the oracle to screen an answer for relevance.
	AnswerValidationTemplate PromptTemplate = "answer_validation.tpl.md"
	// JudgeRetryTemplate asks the oracle for encouraging retry feedback after a failed answer.
	JudgeRetryTemplate PromptTemplate = "judge_retry.tpl.md"
	// DepthEvaluationTemplate asks the oracle whether a topic has been covered in enough depth.
	DepthEvaluationTemplate PromptTemplate = "depth_evaluation.tpl.md"
	// ProbingTemplate asks the oracle for a follow-up question that digs deeper.
	ProbingTemplate PromptTemplate = "probing.tpl.md"
	// FinalFeedbackTemplate asks the oracle to synthesize feedback over the whole interview.
	FinalFeedbackTemplate PromptTemplate = "final_feedback.tpl.md"
)

// systemPrompts carries the per-stage system message sent alongside the
// rendered user prompt.
//
//nolint:gochecknoglobals // Package-level constant map.
var systemPrompts = map[PromptTemplate]string{
	TopicQuestionTemplate:    "You are a friendly, professional interviewer. You ask one clear question at a time.",
	AnswerValidationTemplate: "You are a strict but fair screener of interview answers. You reply with JSON only.",
	JudgeRetryTemplate:       "You are a supportive interviewer who helps candidates give better answers without giving the answer away.",
	DepthEvaluationTemplate:  "You evaluate interview answers for depth and completeness. You reply with JSON only.",
	ProbingTemplate:          "You are a curious interviewer who asks focused follow-up questions.",
	FinalFeedbackTemplate:    "You are an experienced interviewer writing a constructive debrief for a candidate.",
}

// Renderer parses the embedded prompts once and renders them on demand.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer loads and parses every embedded prompt template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template),
	}

	templateNames := []PromptTemplate{
		TopicQuestionTemplate,
		AnswerValidationTemplate,
		JudgeRetryTemplate,
		DepthEvaluationTemplate,
		ProbingTemplate,
		FinalFeedbackTemplate,
	}

	for _, name := range templateNames {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render renders the specified template with the given data.
func (r *Renderer) Render(templateName PromptTemplate, data *PromptData) (string, error) {
	tmpl, exists := r.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// SystemPrompt returns the system message paired with a template, or "" if
// the template carries none.
func (r *Renderer) SystemPrompt(templateName PromptTemplate) string {
	return systemPrompts[templateName]
}

// AvailableTemplates returns the names of all loaded templates.
func (r *Renderer) AvailableTemplates() []PromptTemplate {
	templates := make([]PromptTemplate, 0, len(r.templates))
	for name := range r.templates {
		templates = append(templates, name)
	}
	return templates
}

// FormatQuestions renders a question list as markdown bullets for
// interpolation into a prompt.
func FormatQuestions(questions []string) string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, "- "+q)
	}
	return strings.Join(lines, "\n")
}
