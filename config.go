/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/watchparty/room"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	chatHistory     int
	chatMessages    int
	chatWindow      time.Duration
	hostSecret      string
	hostTokenTTL    time.Duration
	maxParticipants int
	pingInterval    time.Duration
	playerTimeout   time.Duration
	port            int
	prefix          string
	profile         bool
	sessionTimeout  time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.chatMessages < 1 {
		return fmt.Errorf("invalid chat message limit (must be at least 1): %d", c.chatMessages)
	}
	if c.chatWindow <= 0 {
		return fmt.Errorf("invalid chat window (must be positive): %s", c.chatWindow)
	}
	if c.chatHistory < 1 {
		return fmt.Errorf("invalid chat history (must be at least 1): %d", c.chatHistory)
	}
	if c.maxParticipants < 2 {
		return fmt.Errorf("invalid participant limit (must be at least 2): %d", c.maxParticipants)
	}
	if c.pingInterval <= 0 {
		return fmt.Errorf("invalid ping interval (must be positive): %s", c.pingInterval)
	}
	if c.hostTokenTTL <= 0 {
		return fmt.Errorf("invalid host token lifetime (must be positive): %s", c.hostTokenTTL)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) sessionOptions() room.Options {
	return room.Options{
		Limit: room.Limit{
			MaxMessages: c.chatMessages,
			Window:      c.chatWindow,
		},
		History:         c.chatHistory,
		MaxParticipants: c.maxParticipants,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WATCHPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "watchparty",
		Short:         "Host-moderated watch party rooms with shared chat.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WATCHPARTY_BIND)")
	fs.IntVar(&cfg.chatHistory, "chat-history", room.DefaultHistory, "chat messages kept per room (env: WATCHPARTY_CHAT_HISTORY)")
	fs.IntVar(&cfg.chatMessages, "chat-messages", room.DefaultMaxMessages, "chat messages allowed per participant per window (env: WATCHPARTY_CHAT_MESSAGES)")
	fs.DurationVar(&cfg.chatWindow, "chat-window", room.DefaultWindow, "rolling window for the chat rate limit (env: WATCHPARTY_CHAT_WINDOW)")
	fs.StringVar(&cfg.hostSecret, "host-secret", "", "key used to sign host tokens; random per process if unset (env: WATCHPARTY_HOST_SECRET)")
	fs.DurationVar(&cfg.hostTokenTTL, "host-token-ttl", 24*time.Hour, "lifetime of the host token issued on room creation (env: WATCHPARTY_HOST_TOKEN_TTL)")
	fs.IntVar(&cfg.maxParticipants, "max-participants", room.DefaultMaxParticipants, "participants allowed per room, host included (env: WATCHPARTY_MAX_PARTICIPANTS)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", 30*time.Second, "time between websocket keepalive pings (env: WATCHPARTY_PING_INTERVAL)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected participants are removed (env: WATCHPARTY_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WATCHPARTY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WATCHPARTY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WATCHPARTY_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed (env: WATCHPARTY_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WATCHPARTY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WATCHPARTY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WATCHPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WATCHPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("watchparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
