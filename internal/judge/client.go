package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	BaseURL      string
	APIKey       string
	APIHost      string
	PollInterval time.Duration
	MaxPolls     int
}

// Client submits batches to the external Judge0 service and polls until every
// entry reports a terminal status.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 30
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  logger,
	}
}

type batchSubmission struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type batchToken struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResult struct {
	Token  string           `json:"token"`
	Stdout string           `json:"stdout"`
	Status submissionStatus `json:"status"`
}

type batchResultEnvelope struct {
	Submissions []submissionResult `json:"submissions"`
}

// Run builds one execution request per test case, submits the batch, polls
// until terminal, then compares trimmed decoded stdout against the expected
// output. A returned error is always a *BridgeError or ErrUnknownLanguage;
// wrong answers and timeouts come back inside RunResult.
func (c *Client) Run(ctx context.Context, language, sourceCode string, cases []TestCase) (*RunResult, error) {
	languageID, err := LanguageID(language)
	if err != nil {
		return nil, err
	}

	submissions := make([]batchSubmission, 0, len(cases))
	for _, tc := range cases {
		submissions = append(submissions, batchSubmission{
			LanguageID: languageID,
			SourceCode: base64.StdEncoding.EncodeToString([]byte(sourceCode)),
			Stdin:      base64.StdEncoding.EncodeToString([]byte(tc.Stdin)),
		})
	}

	tokens, err := c.submitBatch(ctx, submissions)
	if err != nil {
		return nil, err
	}
	if len(tokens) != len(cases) {
		return nil, &BridgeError{Op: "submit", Err: fmt.Errorf("expected %d tokens, got %d", len(cases), len(tokens))}
	}

	results, err := c.pollBatch(ctx, tokens)
	if err != nil {
		return nil, err
	}

	return c.compare(cases, tokens, results), nil
}

func (c *Client) submitBatch(ctx context.Context, submissions []batchSubmission) ([]string, error) {
	body, err := json.Marshal(map[string]any{"submissions": submissions})
	if err != nil {
		return nil, &BridgeError{Op: "submit", Err: err}
	}

	endpoint := c.cfg.BaseURL + "/submissions/batch?base64_encoded=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &BridgeError{Op: "submit", Err: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &BridgeError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &BridgeError{Op: "submit", Err: fmt.Errorf("judge returned status %d", resp.StatusCode)}
	}

	var created []batchToken
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &BridgeError{Op: "submit", Err: fmt.Errorf("malformed batch response: %w", err)}
	}

	tokens := make([]string, 0, len(created))
	for _, t := range created {
		if t.Token == "" {
			return nil, &BridgeError{Op: "submit", Err: fmt.Errorf("batch entry missing token")}
		}
		tokens = append(tokens, t.Token)
	}
	return tokens, nil
}

func (c *Client) pollBatch(ctx context.Context, tokens []string) (map[string]submissionResult, error) {
	endpoint := fmt.Sprintf("%s/submissions/batch?tokens=%s&base64_encoded=true&fields=token,stdout,status",
		c.cfg.BaseURL, url.QueryEscape(strings.Join(tokens, ",")))

	for attempt := 0; attempt < c.cfg.MaxPolls; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &BridgeError{Op: "poll", Err: ctx.Err()}
			case <-time.After(c.cfg.PollInterval):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, &BridgeError{Op: "poll", Err: err}
		}
		c.setHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &BridgeError{Op: "poll", Err: err}
		}

		var envelope batchResultEnvelope
		err = json.NewDecoder(resp.Body).Decode(&envelope)
		resp.Body.Close()
		if err != nil {
			return nil, &BridgeError{Op: "poll", Err: fmt.Errorf("malformed poll response: %w", err)}
		}

		byToken := make(map[string]submissionResult, len(envelope.Submissions))
		allTerminal := len(envelope.Submissions) == len(tokens)
		for _, sub := range envelope.Submissions {
			byToken[sub.Token] = sub
			if sub.Status.ID < StatusAccepted {
				allTerminal = false
			}
		}
		if allTerminal {
			return byToken, nil
		}

		c.log.Debug("judge batch still pending",
			zap.Int("attempt", attempt+1),
			zap.Int("submissions", len(envelope.Submissions)))
	}

	return nil, &BridgeError{Op: "poll", Err: ErrPollsExhausted}
}

func (c *Client) compare(cases []TestCase, tokens []string, results map[string]submissionResult) *RunResult {
	run := &RunResult{Passed: true}

	for i, tc := range cases {
		sub := results[tokens[i]]
		stdout := decodeBase64(sub.Stdout)
		tr := TestResult{CaseID: tc.CaseID, Stdout: stdout}

		switch {
		case sub.Status.ID == StatusAccepted && strings.TrimSpace(stdout) == strings.TrimSpace(tc.Expected):
			tr.Verdict = VerdictPassed
		case sub.Status.ID == StatusAccepted || sub.Status.ID == StatusWrongAnswer:
			tr.Verdict = VerdictWrong
			run.Passed = false
			if run.Detail == "" {
				run.Detail = fmt.Sprintf("wrong answer on test case %s", tc.CaseID)
			}
		case sub.Status.ID == StatusTimeLimit:
			tr.Verdict = VerdictTimedOut
			run.Passed = false
			run.TimedOut = true
			if run.Detail == "" {
				run.Detail = fmt.Sprintf("time limit exceeded on test case %s", tc.CaseID)
			}
		default:
			tr.Verdict = VerdictError
			tr.Description = sub.Status.Description
			run.Passed = false
			if run.Detail == "" {
				run.Detail = fmt.Sprintf("execution failed on test case %s: %s", tc.CaseID, sub.Status.Description)
			}
		}

		run.Results = append(run.Results, tr)
	}

	if run.Passed {
		run.Detail = "all test cases passed"
	}
	return run
}

func (c *Client) setHeaders(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	}
	if c.cfg.APIHost != "" {
		req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	}
}

func decodeBase64(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some deployments return plain text despite base64_encoded=true
		return s
	}
	return string(decoded)
}
