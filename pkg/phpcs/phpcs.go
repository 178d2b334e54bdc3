// Package phpcs wraps the PHP_CodeSniffer command line tools. The rest
// of the server only ever sees the contract: document text in,
// positioned messages out, and a fix-in-place operation that reports
// success or failure. Nothing here propagates a tool failure upward.
package phpcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os/exec"
	"strings"
	"sync"
)

// Message is one positioned finding from the checker.
type Message struct {
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Fixable  bool   `json:"fixable"`
}

// phpcbf reports partial success through its exit code: these two mean
// "fixed what could be fixed, non-fixable issues remain" and are not
// failures.
const (
	exitFixedAll  = 1
	exitFixedSome = 2
)

// Runner invokes phpcs for checks and phpcbf for fixes. A missing
// binary permanently disables the runner instead of erroring: the
// feature just goes dark.
type Runner struct {
	checkBin string
	fixBin   string
	standard string

	disabledOnce sync.Once
	disabled     bool

	// One in-flight check per document; distinct documents overlap
	// freely.
	perDoc sync.Map // display path -> *sync.Mutex
}

// NewRunner creates a runner. Empty bin names fall back to "phpcs" and
// "phpcbf" resolved from PATH.
func NewRunner(checkBin, fixBin, standard string) *Runner {
	if checkBin == "" {
		checkBin = "phpcs"
	}
	if fixBin == "" {
		fixBin = "phpcbf"
	}
	return &Runner{checkBin: checkBin, fixBin: fixBin, standard: standard}
}

// Available reports whether the checker binary can be found. The lookup
// runs once; a missing binary silently disables the feature.
func (r *Runner) Available() bool {
	r.disabledOnce.Do(func() {
		if _, err := exec.LookPath(r.checkBin); err != nil {
			log.Printf("phpcs: %s not found, style checks disabled", r.checkBin)
			r.disabled = true
		}
	})
	return !r.disabled
}

func (r *Runner) docLock(displayPath string) *sync.Mutex {
	mu, _ := r.perDoc.LoadOrStore(displayPath, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// report mirrors the JSON layout phpcs emits with --report=json.
type report struct {
	Files map[string]struct {
		Messages []struct {
			Message  string `json:"message"`
			Line     int    `json:"line"`
			Column   int    `json:"column"`
			Type     string `json:"type"`
			Fixable  bool   `json:"fixable"`
			Severity int    `json:"severity"`
		} `json:"messages"`
	} `json:"files"`
}

// Check runs the style checker over full document text. The display
// path only labels the report (and selects per-path sniffs); the text
// itself travels over stdin. Any failure degrades to "no messages".
func (r *Runner) Check(ctx context.Context, text, displayPath string) []Message {
	if !r.Available() {
		return nil
	}

	mu := r.docLock(displayPath)
	mu.Lock()
	defer mu.Unlock()

	args := []string{"--report=json", "-q", "--stdin-path=" + displayPath}
	if r.standard != "" {
		args = append(args, "--standard="+r.standard)
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, r.checkBin, args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	// phpcs exits non-zero whenever it has findings, so the exit code
	// alone means nothing; the JSON on stdout is the answer.
	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		log.Printf("phpcs: %s failed for %s: %v", r.checkBin, displayPath, err)
		return nil
	}

	var rep report
	if jsonErr := json.Unmarshal(stdout.Bytes(), &rep); jsonErr != nil {
		log.Printf("phpcs: unparsable report for %s: %v", displayPath, jsonErr)
		return nil
	}

	var out []Message
	for _, f := range rep.Files {
		for _, m := range f.Messages {
			out = append(out, Message{
				Severity: strings.ToLower(m.Type),
				Line:     m.Line,
				Column:   m.Column,
				Message:  m.Message,
				Fixable:  m.Fixable,
			})
		}
	}
	return out
}

// Fix runs the fixer in place on a file. It reports success when the
// fixer exits clean, fixed everything, or fixed what it could with
// non-fixable issues left over. Every other outcome is a no-op false,
// never an error to the caller.
func (r *Runner) Fix(ctx context.Context, path string) bool {
	if _, err := exec.LookPath(r.fixBin); err != nil {
		log.Printf("phpcs: %s not found, fix unavailable", r.fixBin)
		return false
	}

	// Same per-document lock as Check: one tool invocation per
	// document at a time, fixes included.
	mu := r.docLock(path)
	mu.Lock()
	defer mu.Unlock()

	args := []string{}
	if r.standard != "" {
		args = append(args, "--standard="+r.standard)
	}
	args = append(args, path)

	err := exec.CommandContext(ctx, r.fixBin, args...).Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case exitFixedAll, exitFixedSome:
			return true
		}
	}
	log.Printf("phpcs: %s failed for %s: %v", r.fixBin, path, err)
	return false
}
