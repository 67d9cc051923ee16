// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"

	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

type Options struct {
	Level   string
	Format  string
	NoColor bool

	// Output defaults to stderr.
	Output io.Writer
}

// OptionsFromViper reads the log options bound to the global viper instance.
func OptionsFromViper() Options {
	return Options{
		Level:   viper.GetString(LevelKey),
		Format:  viper.GetString(FormatKey),
		NoColor: viper.GetBool(NoColorKey),
	}
}

// InitDefault sets up a console logger at info level, used before flags are parsed.
func InitDefault() {
	Init(&Options{Level: "info", Format: FormatConsole})
}

// Init configures the global logger. A nil opts reads the options from viper.
func Init(opts *Options) {
	if opts == nil {
		o := OptionsFromViper()
		opts = &o
	}
	log.Logger = New(*opts)
	zerolog.SetGlobalLevel(parseLevel(opts.Level))
}

// New creates a logger from opts without touching the global state.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(opts.Format, FormatJSON) {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}
	return zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
