// cmd/taskboard/root.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/taskboard/internal/board"
	"github.com/gurkanbulca/taskboard/internal/config"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/remote/memory"
	"github.com/gurkanbulca/taskboard/internal/service"
	"github.com/gurkanbulca/taskboard/pkg/events"
)

// annotationBoard marks commands that need a loaded board.
const annotationBoard = "board"

// app holds what every subcommand shares: the loaded board and where to print.
type app struct {
	offline   bool
	seedFile  string
	transport string

	cfg     *config.Config
	board   *board.Board
	closeFn func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Work with a kanban task board from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.offline, "offline", false, "use an in-memory board instead of the remote service")
	flags.StringVar(&a.seedFile, "seed", "", "YAML file of tasks to start the offline board with (default $SEED_FILE)")
	flags.StringVar(&a.transport, "transport", "", "remote transport, http or grpc (default $REMOTE_TRANSPORT)")

	for _, cmd := range []*cobra.Command{listCmd(a), addCmd(a), editCmd(a), moveCmd(a), removeCmd(a)} {
		cmd.Annotations = map[string]string{annotationBoard: "true"}
		root.AddCommand(cmd)
	}
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	if cmd.Annotations[annotationBoard] == "" {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.transport != "" {
		cfg.Remote.Transport = a.transport
	}
	if a.seedFile == "" {
		a.seedFile = cfg.Server.SeedFile
	}
	if err := cfg.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	if os.Getenv("LOG_LEVEL") == "" {
		// Keep command output readable unless asked for more.
		logger.SetLevel(log.WarnLevel)
	}

	api, closeFn, err := a.remote(cfg, logger)
	if err != nil {
		return err
	}

	b := board.New(api,
		board.WithLogger(logger),
		board.WithNotifier(bannerNotifier(cmd.OutOrStdout())),
		board.WithPageSize(cfg.Board.PageSize),
		board.WithStaleTime(cfg.Board.StaleTime),
		board.WithDragThreshold(cfg.Board.DragThreshold),
	)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Remote.Timeout)
	defer cancel()
	if err := b.Load(ctx); err != nil {
		b.Close()
		_ = closeFn()
		return fmt.Errorf("❌ Failed to load tasks: %w", err)
	}

	a.cfg, a.board, a.closeFn = cfg, b, closeFn
	return nil
}

func (a *app) remote(cfg *config.Config, logger *log.Logger) (remote.TaskService, func() error, error) {
	if !a.offline {
		return board.Connect(cfg, logger)
	}

	svc := memory.New()
	if a.seedFile != "" {
		f, err := os.Open(a.seedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		if err := svc.LoadSeed(f); err != nil {
			return nil, nil, err
		}
	}
	return svc, func() error { return nil }, nil
}

func (a *app) close() error {
	if a.board == nil {
		return nil
	}
	a.board.Close()
	a.board = nil
	return a.closeFn()
}

// bannerNotifier prints every mutation outcome the way the board would show
// it in a snackbar.
func bannerNotifier(w io.Writer) service.Notifier {
	return service.NotifierFunc(func(e events.Event) {
		if e.Type == events.EventTypeMutationFailed && e.Reason != "" {
			fmt.Fprintf(w, "%s: %s\n", e.Message, e.Reason)
			return
		}
		fmt.Fprintln(w, e.Message)
	})
}
