package procsup

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "rankbot/pkg/logx"
)

// SystemdNotifier returns an Options.Notify that forwards states to systemd.
// Outside a Type=notify unit (no NOTIFY_SOCKET) it is a no-op.
func SystemdNotifier(log logx.Logger) func(state string) {
	return func(state string) {
		sent, err := daemon.SdNotify(false, state)
		if err != nil {
			log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
			return
		}
		if sent && state != daemon.SdNotifyWatchdog {
			log.Debug("sd_notify sent", logx.String("state", state))
		}
	}
}
