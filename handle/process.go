package handle

import (
	"errors"
	"fmt"
	"os"
	"strings"

	ps "github.com/mitchellh/go-ps"
	"github.com/sirupsen/logrus"
)

// processNames lists the executable names a browser runs under.
var processNames = map[string][]string{
	"edge":     {"msedge.exe", "msedge", "microsoft-edge", "Microsoft Edge"},
	"chrome":   {"chrome.exe", "chrome", "google-chrome", "Google Chrome"},
	"chromium": {"chromium.exe", "chromium", "chromium-browser", "Chromium"},
}

func matchProcesses(procs []ps.Process, names []string) []int {
	var pids []int
	for _, p := range procs {
		for _, name := range names {
			if strings.EqualFold(p.Executable(), name) {
				pids = append(pids, p.Pid())
				break
			}
		}
	}
	return pids
}

// KillBrowserProcesses kills running instances of the named browser so a
// fresh one can take the debug port.
func KillBrowserProcesses(name string, log logrus.FieldLogger) error {
	names, ok := processNames[canonicalName(name)]
	if !ok {
		return fmt.Errorf("%w: no process names for %s", ErrUnsupportedBrowser, name)
	}
	procs, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	pids := matchProcesses(procs, names)
	if len(pids) == 0 {
		log.WithField("browser", name).Debug("no running browser processes")
		return nil
	}

	var errs []error
	for _, pid := range pids {
		p, err := os.FindProcess(pid)
		if err == nil {
			err = p.Kill()
		}
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("kill %d: %w", pid, err))
		}
	}
	log.WithFields(logrus.Fields{"browser": name, "count": len(pids)}).Info("killed browser processes")
	return errors.Join(errs...)
}
