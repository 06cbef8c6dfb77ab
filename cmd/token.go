package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/klasroom/taskintake/internal/auth"
	"github.com/klasroom/taskintake/internal/config"
	"github.com/klasroom/taskintake/internal/db"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Mint a new API token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, cleanup, err := openTokenStore()
		exitOnError(err)
		defer cleanup()

		plaintext, err := store.Create(context.Background(), args[0], tokenTTL)
		exitOnError(err)

		fmt.Println("Token created. This value is shown only once:")
		fmt.Println(plaintext)
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued tokens",
	Run: func(cmd *cobra.Command, args []string) {
		store, cleanup, err := openTokenStore()
		exitOnError(err)
		defer cleanup()

		tokens, err := store.List(context.Background())
		exitOnError(err)

		if len(tokens) == 0 {
			fmt.Println("No tokens issued.")
			return
		}
		for _, t := range tokens {
			state := "active"
			if t.Revoked {
				state = "revoked"
			} else if t.ExpiresAt != nil && time.Now().UTC().After(*t.ExpiresAt) {
				state = "expired"
			}
			fmt.Printf("%s  %-20s %s  created %s\n",
				t.ID, t.Name, state, t.CreatedAt.Format("2006-01-02"))
		}
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a token by ID",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, cleanup, err := openTokenStore()
		exitOnError(err)
		defer cleanup()

		exitOnError(store.Revoke(context.Background(), args[0]))
		fmt.Println("Token revoked.")
	},
}

func openTokenStore() (*auth.Store, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	database, err := db.Open(filepath.Join(cfg.DataDir, "taskintake.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return auth.NewStore(database), func() { database.Close() }, nil
}

func init() {
	tokenCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (0 = no expiry)")
	tokenCmd.AddCommand(tokenCreateCmd, tokenListCmd, tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
