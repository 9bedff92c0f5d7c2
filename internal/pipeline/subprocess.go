package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	"github.com/LoganBarnett/dns-smart-block/internal/classify"
)

// ClassifierArgs is the full set of flags forwarded to a spawned
// classifier invocation for one domain.
type ClassifierArgs struct {
	Domain             string
	OllamaURL          string
	OllamaModel        string
	PromptTemplatePath string
	ClassificationType string
	HTTPTimeoutSec     int
	HTTPMaxKB          int
}

func (a ClassifierArgs) argv() []string {
	return []string{
		"--domain", a.Domain,
		"--ollama-url", a.OllamaURL,
		"--ollama-model", a.OllamaModel,
		"--prompt-template", a.PromptTemplatePath,
		"--classification-type", a.ClassificationType,
		"--http-timeout-sec", strconv.Itoa(a.HTTPTimeoutSec),
		"--http-max-kb", strconv.Itoa(a.HTTPMaxKB),
	}
}

// RunClassifier spawns binPath as a child process, reads its stdout and
// stderr concurrently (reading them in sequence deadlocks once either pipe
// buffer fills and the process blocks writing to the other), waits for
// exit, and parses stdout as the classifier's JSON output contract. Exit
// code is advisory — only the parsed JSON shape determines success or
// failure, matching the classifier's own "exit code is advisory" contract.
func RunClassifier(ctx context.Context, binPath string, args ClassifierArgs, logger *slog.Logger) (classify.Output, error) {
	cmd := exec.CommandContext(ctx, binPath, args.argv()...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return classify.Output{}, fmt.Errorf("pipeline: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return classify.Output{}, fmt.Errorf("pipeline: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return classify.Output{}, fmt.Errorf("pipeline: start classifier: %w", err)
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout.ReadFrom(stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		stderr.ReadFrom(stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()

	if stderr.Len() > 0 && logger != nil {
		logger.Debug("classifier stderr", "domain", args.Domain, "output", stderr.String())
	}

	if stdout.Len() == 0 {
		return classify.Output{
			Domain: args.Domain,
			Error: classify.ErrorInfo{
				ErrorType: classify.ErrMetadataSerialization,
				Message:   "classifier produced no output",
			},
		}, nil
	}

	out, decodeErr := classify.Decode(stdout.Bytes())
	if decodeErr != nil {
		detail := decodeErr.Error()
		if waitErr != nil {
			detail = fmt.Sprintf("%s (process exit: %v)", detail, waitErr)
		}
		return classify.Output{
			Domain: args.Domain,
			Error: classify.ErrorInfo{
				ErrorType: classify.ErrMetadataSerialization,
				Message:   detail,
			},
		}, nil
	}

	return out, nil
}
