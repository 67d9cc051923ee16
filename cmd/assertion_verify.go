package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/internal/assertion"
	"github.com/darmiel/clientauth/internal/core"
)

var verifyClientID string

var assertionVerifyCmd = &cobra.Command{
	Use:   "verify [TOKEN]",
	Short: "Validate a client assertion against the local configuration",
	Long: `Runs the same validation as the server against the clients of the local
configuration and prints the internal failure reason. The token is read from
stdin if not given as argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readToken(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		reg, validator, err := f.GetLocalValidator(cmd.Context())
		if err != nil {
			return err
		}

		outcome, err := verifyAssertion(cmd.Context(), reg, validator, verifyClientID, token)
		if err != nil {
			return err
		}
		printOutcome(outcome)
		if !outcome.Success {
			return BeQuietError{}
		}
		return nil
	},
}

func init() {
	assertionCmd.AddCommand(assertionVerifyCmd)

	f.bindConfigFlag(assertionVerifyCmd.Flags())
	assertionVerifyCmd.Flags().StringVar(&verifyClientID, "client-id", "",
		"The client id, read from the assertion subject if empty")
	_ = assertionVerifyCmd.MarkFlagRequired("config")
}

func readToken(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, assertion.MaxAssertionLength+1))
	if err != nil {
		return "", fmt.Errorf("reading token from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func verifyAssertion(
	ctx context.Context,
	reg core.ClientRegistry,
	validator *assertion.Validator,
	clientID string,
	token string,
) (core.Outcome, error) {
	if clientID == "" {
		sub, err := assertion.SubjectFromToken(token)
		if err != nil {
			return core.Outcome{}, fmt.Errorf("reading client id from assertion: %w", err)
		}
		clientID = sub
	}
	log.Debug().Str("client_id", clientID).Msg("looking up client secrets")

	secrets, err := reg.FindSecrets(ctx, clientID)
	if err != nil {
		return core.Outcome{}, fmt.Errorf("looking up client '%s': %w", clientID, err)
	}
	return validator.Evaluate(ctx, secrets, core.ParsedSecret{
		ID:         clientID,
		Type:       core.CredentialTypeJWTBearer,
		Credential: token,
	}), nil
}

func printOutcome(outcome core.Outcome) {
	if outcome.Success {
		fmt.Printf("%s %s\n", greenCheck, bold("client assertion is valid"))
		if a := outcome.Assertion; a != nil {
			fmt.Printf("  %-12s %s\n", faint("Client:"), a.Subject)
			fmt.Printf("  %-12s %s\n", faint("Algorithm:"), a.Algorithm)
			fmt.Printf("  %-12s %s\n", faint("Key ID:"), a.KeyID)
			fmt.Printf("  %-12s %s\n", faint("Expires:"), a.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		return
	}
	fmt.Printf("%s %s\n", redCross, bold("client assertion is invalid"))
	fmt.Printf("  %-12s %s\n", faint("Reason:"), reasonString(outcome.Reason))
	if outcome.Err != nil {
		fmt.Printf("  %-12s %s\n", faint("Detail:"), color.New(color.Faint).Sprint(outcome.Err.Error()))
	}
}
