package commands

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fontmill/fontmill/internal/pipeline"
	"github.com/fontmill/fontmill/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [target]",
		Short: "Rebuild whenever a source file changes",
		Long: `Watch the source tree and re-run the build graph for the target
(default otf) after changes settle. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	target := "otf"
	if len(args) > 0 {
		target = args[0]
	}

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each rebuild runs on a fresh pipeline so nothing carries over
	// from the previous build.
	rebuild := func(files []string) error {
		log.Infow("rebuilding", "target", target, "changed", len(files))
		p, err := pipeline.New(cfg, pipeline.Options{Log: verbosef})
		if err != nil {
			return err
		}
		defer p.Close()
		if err := p.Build(ctx, target); err != nil {
			return err
		}
		log.Infow("build finished", "target", target)
		return nil
	}

	watcher, err := watch.NewFileWatcher(log, nil, rebuild)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	if err := watcher.Start(filepath.Join(cfg.Root, cfg.Dirs.Sources)); err != nil {
		return err
	}
	log.Infow("watching for changes", "target", target)

	// Build once up front so the watch starts from a fresh tree.
	if err := rebuild(nil); err != nil {
		log.Errorw("initial build failed", "error", err)
	}

	<-ctx.Done()
	log.Info("stopping")
	return nil
}
