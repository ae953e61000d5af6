package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkeye/Interview/internal/adapters/console"
	"github.com/dkeye/Interview/internal/adapters/rtc"
	"github.com/dkeye/Interview/internal/app/binding"
	"github.com/dkeye/Interview/internal/app/session"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/spf13/cobra"
)

var joinFlags struct {
	url    string
	userID string
	name   string
	token  string
	wait   bool
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join an interview as the candidate",
	Long: `Opens the candidate call screen. The room comes from --url
(e.g. "/user/video-call?roomId=room123") or from an invitation received on
the signaling channel when --wait is set. Type "end" to leave.`,
	RunE: runJoin,
}

func init() {
	f := joinCmd.Flags()
	f.StringVar(&joinFlags.url, "url", "", "call screen URL carrying roomId")
	f.StringVar(&joinFlags.userID, "user-id", "", "candidate user id")
	f.StringVar(&joinFlags.name, "name", "", "display name")
	f.StringVar(&joinFlags.token, "token", "", "media token")
	f.BoolVar(&joinFlags.wait, "wait", false, "wait for an invitation when the URL has no room")
	_ = joinCmd.MarkFlagRequired("user-id")
}

func runJoin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	user, err := domain.NewUser(joinFlags.userID, joinFlags.name)
	if err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	scfg, err := sessionConfig(cfg, *user, domain.RoleUser, joinFlags.url, joinFlags.token)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := dial(ctx, cfg, user.ID)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	notifier := console.NewNotifier(out)
	nav := console.NewNavigator()
	bindings := binding.NewStore()
	stopInvites := session.NewInvitationListener(client, bindings, notifier).Start()
	defer stopInvites()

	if joinFlags.wait && scfg.Query.Get(session.QueryRoomID) == "" {
		fmt.Fprintln(out, "waiting for an interview invitation...")
		waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		_, err := session.WaitForBinding(waitCtx, bindings)
		stop()
		if err != nil {
			return err
		}
	}

	coord := session.NewCoordinator(scfg, session.Deps{
		Signal:    client,
		Media:     &rtc.Factory{ICEServers: cfg.Client.ICEServers, Signal: client},
		Bindings:  bindings,
		Navigator: nav,
		Notifier:  notifier,
		Clock:     core.SystemClock,
	})
	if err := coord.Mount(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "joined room %s, type \"end\" to leave\n", coord.RoomID())
	runScreen(coord, client, cmd.InOrStdin(), out, nil)
	if route := nav.Route(); route != "" {
		fmt.Fprintf(out, "back to %s\n", route)
	}
	return nil
}
