package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		email string
		role  string
		id    int64
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:          "gen_token",
		Short:        "Print a signed admin session token",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := strings.TrimSpace(os.Getenv("APP_SIGNING_SECRET"))
			if len(secret) < 16 {
				return fmt.Errorf("APP_SIGNING_SECRET must be at least 16 characters")
			}
			if role != "admin" && role != "staff" {
				return fmt.Errorf("role must be admin or staff")
			}
			signed, err := signToken(secret, id, email, role, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "admin@example.com", "email claim")
	cmd.Flags().StringVar(&role, "role", "admin", "role claim (admin or staff)")
	cmd.Flags().Int64Var(&id, "id", 1, "admin id claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func signToken(secret string, id int64, email, role string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"id":    id,
		"email": strings.ToLower(strings.TrimSpace(email)),
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
