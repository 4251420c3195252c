// Package prompt loads and fills the named prompt templates.
//
// Templates use f-string placeholders such as {user_message}; a literal
// brace is written as {{ or }}.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/prompts"
)

// Name identifies a template.
type Name string

const (
	IntentList             Name = "intent_list"
	ParseIntent            Name = "parse_intent"
	DefaultResponse        Name = "default_response"
	QuestionResponse       Name = "question_response"
	QueryResultCheck       Name = "query_result_check"
	QueryResultCompression Name = "query_result_compression"
	FunctionUseCheck       Name = "function_use_check"
	System                 Name = "system"
)

// Names lists every template in load order.
var Names = []Name{
	IntentList, ParseIntent, DefaultResponse, QuestionResponse,
	QueryResultCheck, QueryResultCompression, FunctionUseCheck, System,
}

// Placeholder names available to every template.
const (
	VarUserMessage      = "user_message"
	VarChatHistory      = "chat_history"
	VarIntentList       = "intent_list"
	VarRelatedDocuments = "related_documents"
	VarQueryResults     = "query_results"
	VarFunctionName     = "function_name"
)

var knownVars = []string{
	VarUserMessage, VarChatHistory, VarIntentList,
	VarRelatedDocuments, VarQueryResults, VarFunctionName,
}

//go:embed templates/*.txt
var defaults embed.FS

// Vars holds placeholder values.
type Vars map[string]any

// Set is a loaded collection of templates.
type Set struct {
	raw       map[Name]string
	templates map[Name]prompts.PromptTemplate
}

// Default returns the built-in templates.
func Default() *Set {
	s, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded templates: %v", err))
	}
	return s
}

// Load reads <name>.txt for every template from dir. Files missing from dir
// (or every file, when dir is empty) fall back to the built-in text.
func Load(dir string) (*Set, error) {
	s := &Set{
		raw:       make(map[Name]string, len(Names)),
		templates: make(map[Name]prompts.PromptTemplate, len(Names)),
	}
	for _, name := range Names {
		text, err := read(dir, name)
		if err != nil {
			return nil, err
		}
		s.raw[name] = text
		s.templates[name] = prompts.PromptTemplate{
			Template:       text,
			InputVariables: knownVars,
			TemplateFormat: prompts.TemplateFormatFString,
		}
	}
	return s, nil
}

func read(dir string, name Name) (string, error) {
	file := string(name) + ".txt"
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, file))
		switch {
		case err == nil:
			return string(data), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("read template %s: %w", name, err)
		}
	}
	data, err := defaults.ReadFile("templates/" + file)
	if err != nil {
		return "", fmt.Errorf("read built-in template %s: %w", name, err)
	}
	return string(data), nil
}

// Text returns the unformatted template text.
func (s *Set) Text(name Name) string {
	return s.raw[name]
}

// Render fills the named template. Placeholders missing from vars render
// as empty strings.
func (s *Set) Render(name Name, vars Vars) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	values := make(map[string]any, len(knownVars)+len(vars))
	for _, k := range knownVars {
		values[k] = ""
	}
	for k, v := range vars {
		values[k] = v
	}
	out, err := tmpl.Format(values)
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out, nil
}
