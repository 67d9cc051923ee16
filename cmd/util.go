package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/pkg/client"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

// BeQuietError signals that the error was already reported to the user.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "command failed"
}

// logError reports err together with the server correlation id and returns a BeQuietError.
func logError(err error, correlation, msg string) error {
	if errors.Is(err, client.ErrInvalidSession) {
		log.Error().Msgf("%s %s: session token is invalid or expired, run 'clientauth admin login'", redCross, msg)
		return BeQuietError{}
	}
	log.Error().Err(err).Str("correlation_id", correlation).Msgf("%s %s", redCross, msg)
	return BeQuietError{}
}

// reasonString colors an internal failure reason for terminal output.
func reasonString(reason core.FailureReason) string {
	switch reason {
	case core.ReasonNone:
		return color.GreenString(reason.String())
	case core.ReasonNotApplicable:
		return color.YellowString(reason.String())
	default:
		return color.RedString(reason.String())
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
