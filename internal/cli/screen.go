package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sig "github.com/dkeye/Interview/internal/adapters/signal"
	"github.com/dkeye/Interview/internal/app/session"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

// commandFunc handles one stdin line and reports whether it was known.
type commandFunc func(cmd string) bool

func sessionConfig(cfg *config.Config, user domain.User, role domain.Role, screenURL, token string) (session.Config, error) {
	query, err := session.ParseScreenURL(screenURL)
	if err != nil {
		return session.Config{}, err
	}
	route := cfg.Client.UserRoute
	if role == domain.RoleCompany {
		route = cfg.Client.CompanyRoute
	}
	return session.Config{
		User:              user,
		Role:              role,
		Query:             query,
		Token:             token,
		Camera:            cfg.Client.Camera,
		Mic:               cfg.Client.Mic,
		HeartbeatInterval: cfg.Client.HeartbeatInterval,
		EndDisplayDelay:   cfg.Client.EndDisplayDelay,
		LeaveTimeout:      cfg.Client.LeaveTimeout,
		UnloadTimeout:     cfg.Client.UnloadTimeout,
		ApplicationsRoute: route,
	}, nil
}

// runScreen drives a mounted coordinator until it is done. SIGINT and SIGTERM
// unload the screen; a lost signaling connection unmounts it.
func runScreen(coord *session.Coordinator, client *sig.Client, in io.Reader, out io.Writer, handle commandFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	go readCommands(in, out, func(line string) {
		switch line {
		case "end", "leave":
			coord.EndCall()
		case "status":
			fmt.Fprintf(out, "room %s, %s\n", coord.RoomID(), coord.Phase())
		default:
			if handle == nil || !handle(line) {
				fmt.Fprintf(out, "unknown command %q\n", line)
			}
		}
	})

	select {
	case <-coord.Done():
	case s := <-stop:
		log.Info().Str("module", "cli").Str("signal", s.String()).Msg("unloading call screen")
		coord.Unload()
		<-coord.Done()
	case <-client.Done():
		log.Warn().Str("module", "cli").Msg("signaling connection lost")
		coord.Close()
		<-coord.Done()
	}
	coord.Close()
}

func readCommands(in io.Reader, out io.Writer, fn func(string)) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		fn(line)
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(out, "read commands: %v\n", err)
	}
}

func dial(ctx context.Context, cfg *config.Config, user domain.UserID) (*sig.Client, error) {
	client, err := sig.Dial(ctx, cfg.Client.SignalURL, user, cfg.PingPeriod)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Client.SignalURL, err)
	}
	return client, nil
}
