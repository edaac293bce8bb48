package cel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// Message variables available to filter expressions.
const (
	VarChannelID  = "channel_id"
	VarMessageID  = "telegram_message_id"
	VarText       = "text"
	VarTimestamp  = "timestamp"
	VarAnalysed   = "analysed"
	VarSummary    = "summary"
	VarTopics     = "topics"
	VarSentiment  = "sentiment"
	VarKeywords   = "keywords"
	VarConfidence = "confidence"
	VarLanguage   = "language"
)

// Vars is the activation for a single message.
type Vars struct {
	ChannelID  string
	MessageID  int64
	Text       string
	Timestamp  time.Time
	Analysed   bool
	Summary    string
	Topics     []string
	Sentiment  string
	Keywords   []string
	Confidence float64
	Language   string
}

func (v Vars) activation() map[string]interface{} {
	topics, keywords := v.Topics, v.Keywords
	if topics == nil {
		topics = []string{}
	}
	if keywords == nil {
		keywords = []string{}
	}
	return map[string]interface{}{
		VarChannelID:  v.ChannelID,
		VarMessageID:  v.MessageID,
		VarText:       v.Text,
		VarTimestamp:  v.Timestamp,
		VarAnalysed:   v.Analysed,
		VarSummary:    v.Summary,
		VarTopics:     topics,
		VarSentiment:  v.Sentiment,
		VarKeywords:   keywords,
		VarConfidence: v.Confidence,
		VarLanguage:   v.Language,
	}
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarChannelID, cel.StringType),
		cel.Variable(VarMessageID, cel.IntType),
		cel.Variable(VarText, cel.StringType),
		cel.Variable(VarTimestamp, cel.TimestampType),
		cel.Variable(VarAnalysed, cel.BoolType),
		cel.Variable(VarSummary, cel.StringType),
		cel.Variable(VarTopics, cel.ListType(cel.StringType)),
		cel.Variable(VarSentiment, cel.StringType),
		cel.Variable(VarKeywords, cel.ListType(cel.StringType)),
		cel.Variable(VarConfidence, cel.DoubleType),
		cel.Variable(VarLanguage, cel.StringType),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Filter is a compiled boolean expression.
type Filter struct {
	Expression string
	program    cel.Program
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	_, err := e.compileBool(expression)
	return err
}

func (e *Evaluator) CompileFilter(expression string) (*Filter, error) {
	ast, err := e.compileBool(expression)
	if err != nil {
		return nil, err
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Filter{Expression: expression, program: program}, nil
}

func (e *Evaluator) compileBool(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return ast, nil
}

func (f *Filter) Matches(ctx context.Context, vars Vars) (bool, error) {
	result, _, err := f.program.ContextEval(ctx, vars.activation())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
