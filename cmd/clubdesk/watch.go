package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/events"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow moderation and mutation events as they happen",
	Long: `Print clubdesk events as they are published.

Events come from NATS when events.nats_url (or the remote's NATS URL) is set,
otherwise from the server's event stream.`,
	Example: `  clubdesk watch
  clubdesk watch --topic 'clubdesk.club.*' --topic clubdesk.mutation.failed`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringArray("topic")
		if len(topics) == 0 {
			topics = []string{events.TopicAll}
		}

		ctx := cmd.Context()
		var (
			ch  <-chan events.Message
			err error
		)
		if url := natsURL(); url != "" {
			var closeSub func()
			ch, closeSub, err = subscribeNATS(ctx, url, topics)
			if err != nil {
				return err
			}
			defer closeSub()
		} else {
			ch, err = consoleClient.StreamEvents(ctx, topics)
			if err != nil {
				return fmt.Errorf("opening event stream: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(out, msg)
			}
		}
	},
}

// subscribeNATS subscribes to every topic and merges the deliveries.
func subscribeNATS(ctx context.Context, url string, topics []string) (<-chan events.Message, func(), error) {
	log := logger.Named("nats")
	sub, err := events.NewNATSSubscriber(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	merged := make(chan events.Message, 16)
	var (
		wg      sync.WaitGroup
		cancels []func()
	)
	closeAll := func() {
		for _, c := range cancels {
			c()
		}
		sub.Close()
	}
	for _, topic := range topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		cancels = append(cancels, cancel)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range ch {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged, closeAll, nil
}

func printEvent(w io.Writer, msg events.Message) {
	if jsonOutput {
		fmt.Fprintf(w, "{\"topic\":%q,\"data\":%s}\n", msg.Topic, msg.Data)
		return
	}
	stamp := time.Now().In(location).Format(time.TimeOnly)
	fmt.Fprintf(w, "%s  %-28s  %s\n", ui.RenderMuted(stamp), ui.RenderAccent(msg.Topic), describeEvent(msg))
}

// describeEvent summarises a payload in one line. Unknown payloads are
// printed raw.
func describeEvent(msg events.Message) string {
	switch {
	case strings.HasPrefix(msg.Topic, "clubdesk.mutation."):
		var o events.MutationOutcome
		if json.Unmarshal(msg.Data, &o) == nil && o.Name != "" {
			line := strings.TrimSpace(o.Name + " " + o.Target)
			switch o.Kind {
			case events.OutcomeRetrying:
				return fmt.Sprintf("%s: attempt %d of %d (%s)", line, o.Attempt, o.MaxAttempts, o.Message)
			case events.OutcomeFailed:
				return fmt.Sprintf("%s: failed after %d attempt(s): %s", line, o.Attempt, o.Message)
			default:
				return line + ": " + o.Kind
			}
		}
	case strings.HasSuffix(msg.Topic, ".deleted"):
		var d events.EntityDeleted
		if json.Unmarshal(msg.Data, &d) == nil && d.ID != "" {
			return fmt.Sprintf("%s %s deleted", d.Kind, d.ID)
		}
	case strings.HasPrefix(msg.Topic, "clubdesk.club."):
		var c events.ClubChanged
		if json.Unmarshal(msg.Data, &c) == nil && c.Club != nil {
			line := fmt.Sprintf("club %s %q is %s", c.Club.ID, c.Club.Name, c.Club.Status)
			if c.Reason != "" {
				line += ": " + c.Reason
			}
			return line
		}
	}
	return string(msg.Data)
}

func init() {
	watchCmd.Flags().StringArray("topic", nil, "topic pattern to follow, NATS wildcards allowed (default clubdesk.>)")
}
