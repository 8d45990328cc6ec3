package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Rundown/internal/authority"
	"github.com/dkeye/Rundown/internal/client"
	"github.com/dkeye/Rundown/internal/config"
	"github.com/dkeye/Rundown/internal/render"
	"github.com/dkeye/Rundown/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.LoadClient(config.ClientFlags(os.Args[0]), os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("cannot start session")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	role := cfg.ParsedRole()
	logger := log.With().Str("role", string(role)).Logger()

	comp := render.NewComposition(role, render.LogOutput{Logger: logger}, logger)
	w, h, _ := cfg.DisplaySize()
	comp.SetDisplaySize(w, h)
	if !role.IsAuthority() {
		comp.Cover(cfg.CoverPeriod)
	}

	call, err := client.Dial(ctx, client.CallOptions{
		URL:    cfg.RoomURL,
		Room:   cfg.Room,
		Name:   string(role),
		Token:  cfg.Token(),
		Logger: logger,
	})
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.RoomURL).Msg("cannot reach the room")
	}
	defer call.Close()

	ctrl := authority.New(role, authority.Options{
		Transport:      call,
		Bridge:         comp,
		PollView:       client.LogPollView{Logger: logger},
		LocalSessionID: comp.LocalSessionID(),
		SeedRundown:    session.DemoRundown,
		Logger:         logger.With().Str("module", "authority").Logger(),
	})
	ctrl.SetStreamingURL(cfg.RtmpURL)
	sess := client.NewSession(ctrl, call.Events(), logger)

	if cfg.HTTPAddr != "" {
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: stateRouter(sess, comp)}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("state endpoint started")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("state endpoint")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go console(ctx, cancel, sess)

	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("session ended")
		return
	}
	log.Info().Msg("session ended")
}

// console reads commands from stdin. Only quit ends the session; a closed
// stdin leaves it running.
func console(ctx context.Context, quit context.CancelFunc, sess *client.Session) {
	fmt.Println(help)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			quit()
			return
		}
		var out string
		var cmdErr error
		if err := sess.Do(ctx, func(c *authority.Controller) {
			out, cmdErr = runCommand(c, line)
		}); err != nil {
			return
		}
		if cmdErr != nil {
			fmt.Println("error:", cmdErr)
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
