package types

import "fmt"

// Category classifies why content was rejected or rewritten.
type Category string

const (
	CategoryToxic     Category = "toxic"
	CategoryProfanity Category = "profanity"
	CategoryPII       Category = "pii"
	CategoryTopic     Category = "topic"
	CategoryFormat    Category = "format"
	CategoryInjection Category = "injection"
)

// FailurePolicy decides what a guard does with a failing validator.
type FailurePolicy string

const (
	// PolicyRaise aborts the chain and surfaces the failure to the caller.
	PolicyRaise FailurePolicy = "raise"
	// PolicyFilter rewrites the offending content and continues the chain.
	PolicyFilter FailurePolicy = "filter"
	// PolicyReask is accepted for configuration compatibility and treated
	// exactly like PolicyRaise. No re-asking loop exists.
	PolicyReask FailurePolicy = "reask"
)

type VerdictKind int

const (
	VerdictPass VerdictKind = iota
	VerdictRewrite
	VerdictFail
)

// Verdict is the outcome of validating one piece of text. Exactly one of
// the three kinds applies: a pass carries the text through, a rewrite
// carries a modified text plus the original, a fail carries a category and
// a reason and no usable output.
type Verdict struct {
	Kind     VerdictKind
	Output   string
	Original string
	Category Category
	Reason   string
}

func Pass(text string) Verdict {
	return Verdict{Kind: VerdictPass, Output: text}
}

func PassWithRewrite(output, original string) Verdict {
	return Verdict{Kind: VerdictRewrite, Output: output, Original: original}
}

func Fail(category Category, reason string) Verdict {
	return Verdict{Kind: VerdictFail, Category: category, Reason: reason}
}

func (v Verdict) Failed() bool {
	return v.Kind == VerdictFail
}

func (v Verdict) Rewritten() bool {
	return v.Kind == VerdictRewrite
}

// ValidationRequest is the input to a guard run.
type ValidationRequest struct {
	Text     string
	Metadata map[string]interface{}
}

// Rejection is a user-facing refusal produced by input validation.
type Rejection struct {
	Category Category
	Message  string
}

// ValidationError is a hard validation failure that must abort processing,
// carrying the HTTP status the transport should answer with.
type ValidationError struct {
	StatusCode int
	Category   Category
	Message    string
	Err        error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s validation failed: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Category, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
