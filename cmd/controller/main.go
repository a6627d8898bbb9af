//go:build windows

// Command controller injects the path-redirection payload into an
// already-running process by pid, or launches a new process already
// wrapped, in both cases supervising the payload until every injected
// process has detached.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maroider/asbestos-go/controller"
	"github.com/maroider/asbestos-go/vfs"
	"github.com/maroider/asbestos-go/wire"
)

var (
	mappingsPath string
	noSubHook    bool
	showConsole  bool
	payloadPath  string
)

func main() {
	log := logrus.New()

	root := &cobra.Command{
		Use:   "controller",
		Short: "Install and supervise the path-redirection payload in a target process",
	}
	root.PersistentFlags().StringVar(&payloadPath, "payload", "", "path to the payload DLL (required)")
	root.PersistentFlags().StringVar(&mappingsPath, "with-mappings", "", "path to a JSON mappings file")
	root.PersistentFlags().BoolVar(&noSubHook, "no-sub-hook", false, "do not hook child-process creation in the payload")

	root.AddCommand(newInjectCommand(log))
	root.AddCommand(newWrapCommand(log))

	root.SilenceUsage = true
	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newInjectCommand(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "inject <pid>",
		Short: "Inject the payload into an already-running process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid pid %q: %w", args[0], err)
			}
			return runSupervised(log, uint32(pid), false)
		},
	}
}

func newWrapCommand(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap <command> [args...]",
		Short: "Launch a process suspended and inject the payload before it runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, cleanup, err := launchSuspended(args[0], args[1:])
			if err != nil {
				return fmt.Errorf("launching %q: %w", args[0], err)
			}
			defer cleanup()

			return runSupervised(log, pid, true)
		},
	}
	cmd.Flags().BoolVar(&showConsole, "show-console", false, "request a visible console in the wrapped process")
	return cmd
}

// runSupervised loads the mappings file (if any), performs the initial
// inject-and-connect, and runs the supervisor loop until every supervised
// process has detached or the user interrupts.
func runSupervised(log *logrus.Logger, pid uint32, launchedSuspended bool) error {
	if payloadPath == "" {
		return fmt.Errorf("--payload is required")
	}

	mappings := vfs.Mappings{}
	if mappingsPath != "" {
		m, err := controller.LoadMappingsFile(mappingsPath)
		if err != nil {
			return err
		}
		mappings = m
	}

	startup := wire.StartupInfo{
		MainThreadSuspended:  launchedSuspended,
		DontHookSubprocesses: noSubHook,
		ShowConsole:          showConsole,
		Mappings:             mappings,
	}

	injector := &controller.WindowsInjector{Process: &controller.DLLInjector{PayloadPath: payloadPath}}
	conn, err := injector.InjectAndConnect(pid, startup)
	if err != nil {
		return err
	}

	sup := controller.NewSupervisor(log, injector, startup)
	sup.Add(pid, conn)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		sup.Interrupt()
	}()

	sup.Run()
	return nil
}

// launchSuspended starts name with args as a suspended child whose own
// entry point hasn't run yet, giving the controller the same injection
// window for the directly-wrapped top-level process as the
// process-creation detour gives it for every detoured child.
func launchSuspended(name string, args []string) (pid uint32, cleanup func(), err error) {
	c := exec.Command(name, args...)
	c.SysProcAttr = suspendedSysProcAttr()
	if err := c.Start(); err != nil {
		return 0, nil, err
	}
	return uint32(c.Process.Pid), func() { _ = c.Process.Release() }, nil
}
