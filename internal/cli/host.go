package cli

import (
	"errors"
	"fmt"

	"github.com/dkeye/Interview/internal/adapters/console"
	"github.com/dkeye/Interview/internal/adapters/rtc"
	"github.com/dkeye/Interview/internal/adapters/storage"
	"github.com/dkeye/Interview/internal/app/binding"
	"github.com/dkeye/Interview/internal/app/session"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/spf13/cobra"
)

var hostFlags struct {
	url         string
	companyID   string
	companyName string
	token       string
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host an interview as the company",
	Long: `Opens the company call screen for
"/company/video-call?roomId=room123&applicationId=app-1&user_id=u-1".
Commands: "admit" lets the candidate in, "status" shows the room, "end"
finishes the interview.`,
	RunE: runHost,
}

func init() {
	f := hostCmd.Flags()
	f.StringVar(&hostFlags.url, "url", "", "call screen URL carrying roomId, applicationId and user_id")
	f.StringVar(&hostFlags.companyID, "company-id", "", "company user id")
	f.StringVar(&hostFlags.companyName, "company-name", "", "company display name")
	f.StringVar(&hostFlags.token, "token", "", "media token")
	_ = hostCmd.MarkFlagRequired("url")
	_ = hostCmd.MarkFlagRequired("company-id")
}

func runHost(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	company, err := domain.NewUser(hostFlags.companyID, hostFlags.companyName)
	if err != nil {
		return fmt.Errorf("invalid company: %w", err)
	}
	scfg, err := sessionConfig(cfg, *company, domain.RoleCompany, hostFlags.url, hostFlags.token)
	if err != nil {
		return err
	}
	gateCfg, err := session.HostConfigFromQuery(scfg.Query, hostFlags.companyName)
	if err != nil {
		return err
	}
	gateCfg.BusyWindow = cfg.Client.BusyWindow

	store, err := storage.OpenFileStore(cfg.Client.StoragePath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := dial(ctx, cfg, company.ID)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	notifier := console.NewNotifier(out)
	nav := console.NewNavigator()

	gate := session.NewHostGate(gateCfg, client, store, notifier, core.SystemClock)
	gate.Start()
	defer gate.Stop()

	coord := session.NewCoordinator(scfg, session.Deps{
		Signal:    client,
		Media:     &rtc.Factory{ICEServers: cfg.Client.ICEServers, Signal: client, Initiator: true},
		Bindings:  binding.NewStore(),
		Navigator: nav,
		Notifier:  notifier,
		Clock:     core.SystemClock,
	}, gate)
	if err := coord.Mount(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "hosting room %s for %s, type \"admit\" to let them in\n", gateCfg.RoomID, gateCfg.UserID)

	runScreen(coord, client, cmd.InOrStdin(), out, func(line string) bool {
		switch line {
		case "admit":
			if err := gate.AllowEntry(); err != nil && !errors.Is(err, session.ErrParticipantBusy) {
				fmt.Fprintf(out, "admit failed: %v\n", err)
			}
		case "busy":
			if room, busy := gate.Busy(); busy {
				fmt.Fprintf(out, "%s is in room %s\n", gateCfg.UserID, room)
			} else {
				fmt.Fprintf(out, "%s is available\n", gateCfg.UserID)
			}
		default:
			return false
		}
		return true
	})
	return nil
}
