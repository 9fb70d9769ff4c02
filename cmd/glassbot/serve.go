package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"glassbot/internal/app"
	"glassbot/internal/plugin"
	logx "glassbot/pkg/logx"
	"glassbot/plugins/echo"
	"glassbot/plugins/profile"
	"glassbot/plugins/system"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive updates over the webhook",
	Long:  "Listen on telegram.webhook.listen and answer updates the platform posts to telegram.webhook.path",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), app.IntakeWebhook)
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Receive updates with long polling",
	Long:  "Pull updates with getUpdates. The webhook must be deleted first (see delete-webhook).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), app.IntakePoll)
	},
}

func run(parent context.Context, in app.Intake) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := app.New(configFile)
	if err != nil {
		return err
	}
	log := a.Logger()

	pm := plugin.NewManager(plugin.Deps{
		Bot:     a.Bot(),
		Planner: a.Planner(),
		Users:   a.Users(),
		Log:     log,
	})
	if err := pm.Register(profile.New(), echo.New(), system.New()); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	if err := a.Start(ctx, in); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}
	notify(log, daemon.SdNotifyReady)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	reason := app.StopUnknown
	select {
	case s := <-sig:
		reason = app.StopSIGINT
		if s == syscall.SIGTERM {
			reason = app.StopSIGTERM
		}
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	case <-ctx.Done():
	}
	notify(log, daemon.SdNotifyStopping)

	fatal := a.Err()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		return errors.Join(fatal, err)
	}
	return fatal
}

// notify reports state to systemd when running as a notify unit.
func notify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
