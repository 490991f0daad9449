package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/battleship-server/internal/client"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// queuePollInterval is how often `queue` asks for a status refresh
const queuePollInterval = 5 * time.Second

// waitContext lasts until interrupted, or until wait elapses when positive
func waitContext(cmd *cobra.Command, wait time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	if wait <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	return ctx, func() {
		cancel()
		stop()
	}
}

func newChallengeCmd() *cobra.Command {
	var (
		timeLimit uint32
		random    bool
		noWait    bool
		wait      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "challenge <user-id>",
		Short: "Challenge an online player and wait for the match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			ctx, cancel := waitContext(cmd, wait)
			defer cancel()

			c, _, err := login(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := NewOutput(cfg.Output)
			res, err := c.Challenge(ctx, target, timeLimit, random)
			if err != nil {
				return err
			}
			out.Print(ChallengeOutcome{ChallengeID: res.ChallengeID, Success: res.Success, Message: res.Message})
			if !res.Success {
				return errors.New(res.Message)
			}
			if noWait {
				return nil
			}

			match, err := awaitChallengeOutcome(ctx, c, res.ChallengeID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					cancelCtx, cancelTimeout := context.WithTimeout(context.Background(), cfg.Timeout)
					defer cancelTimeout()
					_, _ = c.CancelChallenge(cancelCtx, res.ChallengeID)
				}
				return err
			}
			out.Print(matchResultFrom(match))
			return nil
		},
	}

	cmd.Flags().Uint32Var(&timeLimit, "time", 300, "Per-player time limit in seconds")
	cmd.Flags().BoolVar(&random, "random", false, "Request random ship placement")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the challenge is sent")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Give up after this long (0 waits until interrupted)")

	return cmd
}

// awaitChallengeOutcome waits for MATCH_START or a failing CHALLENGE_RESULT
// for the given challenge.
func awaitChallengeOutcome(ctx context.Context, c *client.Client, challengeID uint64) (protocol.MatchStart, error) {
	for {
		msg, err := c.Next(ctx)
		if err != nil {
			return protocol.MatchStart{}, err
		}

		switch msg.Header.Type {
		case protocol.TypeMatchStart:
			var m protocol.MatchStart
			err := m.UnmarshalBinary(msg.Payload)
			return m, err
		case protocol.TypeChallengeResult:
			var res protocol.ChallengeResult
			if err := res.UnmarshalBinary(msg.Payload); err != nil {
				return protocol.MatchStart{}, err
			}
			if res.ChallengeID == challengeID && !res.Success {
				return protocol.MatchStart{}, errors.New(res.Message)
			}
		}
	}
}

func newAcceptCmd() *cobra.Command {
	var (
		from    uint64
		decline bool
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Wait for a challenge and accept (or decline) it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := waitContext(cmd, wait)
			defer cancel()

			c, _, err := login(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := NewOutput(cfg.Output)
			var incoming protocol.ChallengeReceived
			for {
				incoming, err = c.AwaitChallenge(ctx)
				if err != nil {
					return err
				}
				if from == 0 || incoming.ChallengerID == from {
					break
				}
				if cfg.Verbose {
					out.PrintMessage(fmt.Sprintf("ignoring challenge %d from %s", incoming.ChallengeID, incoming.ChallengerUsername))
				}
			}
			out.Print(incomingFrom(incoming))

			if err := c.Respond(ctx, incoming.ChallengeID, !decline); err != nil {
				return err
			}
			if decline {
				out.PrintMessage("challenge declined")
				return nil
			}

			match, err := c.AwaitMatch(ctx)
			if err != nil {
				return err
			}
			out.Print(matchResultFrom(match))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "Only respond to challenges from this user id")
	cmd.Flags().BoolVar(&decline, "decline", false, "Decline instead of accepting")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Give up after this long (0 waits until interrupted)")

	return cmd
}

func newQueueCmd() *cobra.Command {
	var (
		timeLimit uint32
		wait      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Join matchmaking and wait for an opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := waitContext(cmd, wait)
			defer cancel()

			c, _, err := login(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := NewOutput(cfg.Output)
			status, err := c.JoinQueue(ctx, timeLimit)
			if err != nil {
				return err
			}
			out.Print(queueResultFrom(status))

			match, err := awaitQueueMatch(ctx, c, out)
			if err != nil {
				if ctx.Err() != nil {
					leaveCtx, leaveCancel := context.WithTimeout(context.Background(), cfg.Timeout)
					defer leaveCancel()
					_, _ = c.LeaveQueue(leaveCtx)
				}
				return err
			}
			out.Print(matchResultFrom(match))
			return nil
		},
	}

	cmd.Flags().Uint32Var(&timeLimit, "time", 300, "Per-player time limit in seconds")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Leave the queue after this long (0 waits until interrupted)")

	return cmd
}

// awaitQueueMatch waits for MATCH_START, polling queue status in between
func awaitQueueMatch(ctx context.Context, c *client.Client, out *Output) (protocol.MatchStart, error) {
	for {
		pollCtx, cancel := context.WithTimeout(ctx, queuePollInterval)
		msg, err := c.Next(pollCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			if err := c.Send(protocol.TypeQueueStatusRequest, nil); err != nil {
				return protocol.MatchStart{}, err
			}
			continue
		case err != nil:
			return protocol.MatchStart{}, err
		}

		switch msg.Header.Type {
		case protocol.TypeMatchStart:
			var m protocol.MatchStart
			err := m.UnmarshalBinary(msg.Payload)
			return m, err
		case protocol.TypeQueueStatus:
			var st protocol.QueueStatus
			if err := st.UnmarshalBinary(msg.Payload); err != nil {
				return protocol.MatchStart{}, err
			}
			if cfg.Verbose {
				out.Print(queueResultFrom(st))
			}
		}
	}
}
