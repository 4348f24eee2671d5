package judge

import (
	"context"
	"errors"
	"fmt"
)

// Judge0 terminal status ids. Anything >= StatusAccepted will not change on
// further polling.
const (
	StatusInQueue      = 1
	StatusProcessing   = 2
	StatusAccepted     = 3
	StatusWrongAnswer  = 4
	StatusTimeLimit    = 5
	StatusCompileError = 6
)

type Verdict string

const (
	VerdictPassed   Verdict = "passed"
	VerdictWrong    Verdict = "wrong_answer"
	VerdictTimedOut Verdict = "timed_out"
	VerdictError    Verdict = "error"
)

type TestCase struct {
	CaseID   string
	Stdin    string
	Expected string
}

type TestResult struct {
	CaseID      string  `json:"caseId"`
	Verdict     Verdict `json:"verdict"`
	Stdout      string  `json:"stdout"`
	Description string  `json:"description,omitempty"`
}

// RunResult is the decoded, compared outcome of one submission batch.
type RunResult struct {
	Passed   bool         `json:"passed"`
	TimedOut bool         `json:"timedOut"`
	Detail   string       `json:"detail"`
	Results  []TestResult `json:"results"`
}

// BridgeError marks a failure of the bridge itself (unreachable judge,
// malformed batch, polls exhausted) as opposed to a code-correctness failure.
// Callers treat it as retryable and must not charge a submission attempt.
type BridgeError struct {
	Op  string
	Err error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("judge bridge %s: %v", e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// ErrPollsExhausted means the batch never reached a terminal status within
// the configured number of polls.
var ErrPollsExhausted = errors.New("submission did not reach terminal status")

// ErrUnknownLanguage is an input error, not a bridge error.
var ErrUnknownLanguage = errors.New("unsupported language")

// Runner is the interface the duel session depends on.
type Runner interface {
	Run(ctx context.Context, language, sourceCode string, cases []TestCase) (*RunResult, error)
}

// languageIDs maps the API-facing language names onto Judge0 language ids.
var languageIDs = map[string]int{
	"python":     100,
	"cpp":        105,
	"c":          103,
	"go":         95,
	"java":       91,
	"javascript": 102,
}

func LanguageID(language string) (int, error) {
	id, ok := languageIDs[language]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}
	return id, nil
}
