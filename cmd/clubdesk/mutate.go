package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/events"
	"github.com/alfredjeanlab/clubdesk/internal/mutation"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

// mutationResult is the --json form of a finished mutation.
type mutationResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Target   string `json:"target"`
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
}

// newExecutor builds the executor from the retry settings. Outcomes are
// mirrored to NATS when a bus is configured and reachable.
func newExecutor() (*mutation.Executor, func()) {
	opts := []mutation.Option{mutation.WithLogger(logger)}
	cleanup := func() {}
	if url := natsURL(); url != "" {
		pub, err := events.NewNATSPublisher(url)
		if err != nil {
			logger.Warn("mutation events disabled", zap.String("nats_url", url), zap.Error(err))
		} else {
			opts = append(opts, mutation.WithPublisher(pub))
			cleanup = func() { pub.Close() }
		}
	}

	policy := mutation.Policy{MaxAttempts: cfg.RetryMaxAttempts, Delay: cfg.RetryDelay}
	if len(cfg.RetryStatuses) > 0 {
		policy.Retryable = mutation.RetryOnStatus(cfg.RetryStatuses...)
	}
	return mutation.NewExecutor(policy, opts...), cleanup
}

// confirmation is the --confirm value, or what the operator types when
// stdin is a terminal. Without either it is empty and pre-flight rejects it.
func confirmation(cmd *cobra.Command, given, action, id string) (string, error) {
	if given != "" || !ui.IsInteractive() {
		return given, nil
	}
	return ui.TypedConfirmation(cmd.InOrStdin(), cmd.ErrOrStderr(), action, id)
}

// offerRetry reports whether a manual retry could plausibly succeed.
func offerRetry(res mutation.Result) bool {
	if res.State != mutation.FailedTerminal {
		return false
	}
	switch res.Category {
	case mutation.CategoryTransientServer, mutation.CategoryNetworkUnreachable, mutation.CategoryUnknown:
		return true
	}
	return false
}

// runMutation executes req and prints every outcome event to stderr. On a
// terminal, a failed mutation can be retried by hand with the same ID.
func runMutation(cmd *cobra.Command, req mutation.Request) error {
	exec, cleanup := newExecutor()
	defer cleanup()

	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	notify := func(ev mutation.Event) { fmt.Fprintln(errOut, ui.Outcome(ev)) }

	m, res := exec.Run(ctx, req, notify)
	for offerRetry(res) && ui.IsInteractive() {
		answer, err := ui.Prompt(cmd.InOrStdin(), errOut, "Retry now? [y/N] ")
		if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
			m.Abandon()
			break
		}
		res = m.Retry(ctx)
	}

	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), mutationResult{
			ID:       res.ID,
			Name:     req.Name,
			Target:   req.Target,
			State:    res.State.String(),
			Attempts: res.Attempts,
			Category: string(res.Category),
			Message:  res.Message,
		}); err != nil {
			return err
		}
	}

	switch {
	case res.OK():
		return nil
	case res.State == mutation.Abandoned:
		return fmt.Errorf("%s %s: %w", req.Name, req.Target, res.Err)
	default:
		return &reportedError{err: fmt.Errorf("%s %s: %s", req.Name, req.Target, res.Message)}
	}
}
