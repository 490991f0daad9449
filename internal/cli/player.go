package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mcoot/battleship-server/internal/client"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// requestContext bounds a single request/response command
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.Timeout)
}

// login dials the game server and authenticates with the configured credentials
func login(ctx context.Context) (*client.Client, protocol.AuthResponse, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, protocol.AuthResponse{}, err
	}

	c, err := client.Dial(ctx, cfg.Addr)
	if err != nil {
		return nil, protocol.AuthResponse{}, err
	}

	resp, err := c.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		_ = c.Close()
		return nil, resp, err
	}
	return c, resp, nil
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Measure a protocol round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			c, err := client.Dial(ctx, cfg.Addr)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			rtt, err := c.Ping(ctx)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(PingResult{Addr: cfg.Addr, RTTMillis: float64(rtt.Microseconds()) / 1000})
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new player account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()

			c, err := client.Dial(ctx, cfg.Addr)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			resp, err := c.Register(ctx, cfg.Username, cfg.Password, name)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(authResultFrom(cfg.Username, resp))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the username)")

	return cmd
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials and show the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			c, resp, err := login(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			NewOutput(cfg.Output).Print(authResultFrom(cfg.Username, resp))
			return c.Logout(ctx)
		},
	}
}

func newPlayersCmd() *cobra.Command {
	var availableOnly bool

	cmd := &cobra.Command{
		Use:   "players",
		Short: "List online players",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			c, _, err := login(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			players, err := c.Players(ctx)
			if err != nil {
				return err
			}

			rows := make(PlayerRows, 0, len(players))
			for _, p := range players {
				row := playerRowFrom(p)
				if availableOnly && row.Status != "available" {
					continue
				}
				rows = append(rows, row)
			}

			NewOutput(cfg.Output).Print(rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&availableOnly, "available", false, "Only show players who can be challenged")

	return cmd
}

func authResultFrom(username string, resp protocol.AuthResponse) AuthResult {
	return AuthResult{
		UserID:       resp.UserID,
		Username:     username,
		DisplayName:  resp.DisplayName,
		EloRating:    resp.EloRating,
		SessionToken: resp.SessionToken,
	}
}
