// Package assistant answers one user message at a time: it classifies the
// message, optionally consults the manual, generates the reply and records
// the exchange in the conversation history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/tools"
	"go.uber.org/zap"

	"helperbot/internal/domain"
	"helperbot/internal/history"
	"helperbot/internal/prompt"
	"helperbot/internal/retrieval"
)

// Strategy selects how the retrieval capability is chosen.
type Strategy string

const (
	// StrategyPrompt asks the model, through the function_use_check template,
	// to name the function it wants and matches the reply against it.
	StrategyPrompt Strategy = "prompt"
	// StrategyFunctionCall offers the lookup as a callable function.
	StrategyFunctionCall Strategy = "function_call"
)

// DefaultGreetingLabel is the intent answered without retrieval.
const DefaultGreetingLabel = "greeting"

// Config tunes the orchestrator.
type Config struct {
	GreetingLabel string
	Strategy      Strategy
}

// Reply is the outcome of one successful turn.
type Reply struct {
	Text   string
	Intent domain.Intent
	// UsedRetrieval reports whether the manual was consulted.
	UsedRetrieval  bool
	SupportingText string
	// PersistenceWarning is set when the turn was answered but could not be
	// written to durable storage.
	PersistenceWarning error
}

// Orchestrator runs the per-turn pipeline. Turns are processed one at a time.
type Orchestrator struct {
	mu        sync.Mutex
	completer domain.FunctionCompleter
	gate      *retrieval.Gate
	lookup    tools.Tool
	history   *history.History
	prompts   *prompt.Set
	taxonomy  domain.Taxonomy
	cfg       Config
	logger    *zap.Logger
}

// New builds an orchestrator. The taxonomy is read from the intent_list template.
func New(
	completer domain.FunctionCompleter,
	gate *retrieval.Gate,
	hist *history.History,
	prompts *prompt.Set,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.GreetingLabel == "" {
		cfg.GreetingLabel = DefaultGreetingLabel
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyPrompt
	}
	return &Orchestrator{
		completer: completer,
		gate:      gate,
		lookup:    retrieval.NewTool(gate),
		history:   hist,
		prompts:   prompts,
		taxonomy:  domain.ParseTaxonomy(prompts.Text(prompt.IntentList)),
		cfg:       cfg,
		logger:    logger.With(zap.String("conversation_id", hist.ConversationID())),
	}
}

// History returns the conversation the orchestrator records into.
func (o *Orchestrator) History() *history.History { return o.history }

// Answer processes userMessage. On error nothing is recorded and the caller
// should show UserMessage(err); the conversation can continue.
func (o *Orchestrator) Answer(ctx context.Context, userMessage string) (Reply, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	window := o.history.Window()
	vars := prompt.Vars{
		prompt.VarUserMessage:  userMessage,
		prompt.VarChatHistory:  domain.FormatTranscript(window),
		prompt.VarIntentList:   o.prompts.Text(prompt.IntentList),
		prompt.VarFunctionName: o.gate.FunctionName(),
	}

	intent, err := o.classify(ctx, vars)
	if err != nil {
		return Reply{}, err
	}
	logger := o.logger.With(zap.String("intent", intent.Label()))
	if _, unknown := intent.(domain.UnknownIntent); unknown {
		logger.Debug("intent not in taxonomy")
	}

	reply := Reply{Intent: intent}
	if domain.IsIntent(intent, o.cfg.GreetingLabel) {
		reply.Text, err = o.render(ctx, prompt.DefaultResponse, vars)
	} else if o.cfg.Strategy == StrategyFunctionCall {
		err = o.answerWithFunctions(ctx, logger, window, userMessage, vars, &reply)
	} else {
		err = o.answerWithSelector(ctx, logger, userMessage, vars, &reply)
	}
	if err != nil {
		logger.Warn("turn failed", zap.Error(err))
		return Reply{}, err
	}

	if err := o.history.Append(ctx,
		domain.NewTurn(domain.RoleUser, userMessage),
		domain.NewTurn(domain.RoleAssistant, reply.Text),
	); err != nil {
		reply.PersistenceWarning = err
	}
	logger.Info("turn answered", zap.Bool("retrieval", reply.UsedRetrieval))
	return reply, nil
}

func (o *Orchestrator) classify(ctx context.Context, vars prompt.Vars) (domain.Intent, error) {
	raw, err := o.render(ctx, prompt.ParseIntent, vars)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return o.taxonomy.Classify(strings.TrimSpace(raw)), nil
}

// answerWithSelector asks which capability to use, runs the gate when the
// lookup is named and answers with the question template.
func (o *Orchestrator) answerWithSelector(ctx context.Context, logger *zap.Logger, userMessage string, vars prompt.Vars, reply *Reply) error {
	choice, err := o.render(ctx, prompt.FunctionUseCheck, vars)
	if err != nil {
		return fmt.Errorf("select capability: %w", err)
	}

	supporting := ""
	if MatchesFunction(choice, o.gate.FunctionName()) {
		reply.UsedRetrieval = true
		supporting, err = o.gate.Retrieve(ctx, userMessage)
		switch {
		case errors.Is(err, domain.ErrStoreUnavailable):
			logger.Warn("answering without manual", zap.Error(err))
			supporting = ""
		case err != nil:
			return fmt.Errorf("retrieve: %w", err)
		}
	} else {
		logger.Debug("no capability selected", zap.String("function", strings.TrimSpace(choice)))
	}
	reply.SupportingText = supporting

	answerVars := make(prompt.Vars, len(vars)+1)
	for k, v := range vars {
		answerVars[k] = v
	}
	answerVars[prompt.VarRelatedDocuments] = supporting
	reply.Text, err = o.render(ctx, prompt.QuestionResponse, answerVars)
	return err
}

// answerWithFunctions offers the lookup as a function. A call to it is
// executed, its result appended after the request and the model asked once
// more for the final answer.
func (o *Orchestrator) answerWithFunctions(ctx context.Context, logger *zap.Logger, window []domain.Turn, userMessage string, vars prompt.Vars, reply *Reply) error {
	system, err := o.prompts.Render(prompt.System, vars)
	if err != nil {
		return err
	}
	turns := make([]domain.Turn, 0, len(window)+4)
	turns = append(turns, domain.NewTurn(domain.RoleSystem, system))
	turns = append(turns, window...)
	turns = append(turns, domain.NewTurn(domain.RoleUser, userMessage))

	completion, err := o.completer.CompleteWithFunctions(ctx, turns, []domain.FunctionDescriptor{o.gate.Descriptor()})
	if err != nil {
		return fmt.Errorf("select capability: %w", err)
	}

	switch c := completion.(type) {
	case domain.PlainAnswer:
		reply.Text = c.Content
		return nil

	case domain.FunctionCallRequest:
		logger = logger.With(zap.String("function", c.Name))
		if c.Name != o.lookup.Name() {
			logger.Warn("model requested unknown function")
			reply.Text, err = o.render(ctx, prompt.QuestionResponse, vars)
			return err
		}

		result, err := o.lookup.Call(ctx, c.RawArguments)
		switch {
		case errors.Is(err, domain.ErrStoreUnavailable):
			logger.Warn("answering without manual", zap.Error(err))
		case err != nil:
			return fmt.Errorf("call %s: %w", c.Name, err)
		default:
			reply.UsedRetrieval = true
			reply.SupportingText = result
		}

		request := domain.NewTurn(domain.RoleAssistant, "")
		request.FunctionCall = &c
		turns = append(turns, request, domain.FunctionResultTurn(c, result))

		reply.Text, err = o.completer.Complete(ctx, turns)
		return err

	default:
		return fmt.Errorf("unexpected completion %T", completion)
	}
}

func (o *Orchestrator) render(ctx context.Context, name prompt.Name, vars prompt.Vars) (string, error) {
	text, err := o.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	return o.completer.Complete(ctx, []domain.Turn{domain.NewTurn(domain.RoleUser, text)})
}

// MatchesFunction reports whether a capability-selection reply names fn.
// Whitespace, quotes, backticks and a trailing "()" are ignored.
func MatchesFunction(reply, fn string) bool {
	s := strings.TrimSpace(reply)
	s = strings.Trim(s, "\"'`.")
	s = strings.TrimSuffix(s, "()")
	return fn != "" && strings.EqualFold(strings.TrimSpace(s), fn)
}
