package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"postdeck/cmd/deck/ui"
	"postdeck/internal/config"
	"postdeck/internal/fragment"
	"postdeck/internal/manifest"
	"postdeck/internal/post"
	"postdeck/internal/remote"
	"postdeck/internal/store"
	"postdeck/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// presentFlags override presenter config for one run.
type presentFlags struct {
	reveal    string
	remote    string
	noWatch   bool
	fromStart bool
}

func newPresentCmd() *cobra.Command {
	var f presentFlags
	cmd := &cobra.Command{
		Use:   "present <post-id>",
		Short: "Present a post's slide deck",
		Long: `Opens the deck of a post full screen and resumes at the slide the last
run ended on.

Keys: →/space next, ← previous, enter follows an inline "next" link,
g/G first/last, ? help, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresent(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.reveal, "reveal", "", "Slide reveal: progressive or exclusive")
	cmd.Flags().StringVar(&f.remote, "remote", "", "Serve the remote API on this address")
	cmd.Flags().BoolVar(&f.noWatch, "no-watch", false, "Disable live reload")
	cmd.Flags().BoolVar(&f.fromStart, "from-start", false, "Ignore the stored position")
	return cmd
}

// configDir is the directory holding the config file and the store.
func configDir() string {
	if configPath != "" {
		return filepath.Dir(configPath)
	}
	return filepath.Dir(config.DefaultPath())
}

func runPresent(ctx context.Context, id string, f presentFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cat, err := post.Load(cfg.PostsDir)
	if err != nil {
		return err
	}
	p, err := cat.Get(id)
	if err != nil {
		return err
	}
	if !p.HasSlides() {
		return fmt.Errorf("%s has no slides; use 'deck show %s'", id, id)
	}
	path, _ := cat.Path(id)

	pc := cfg.Presenter
	if f.reveal != "" {
		pc.Reveal = f.reveal
		if err := pc.Validate(); err != nil {
			return err
		}
	}

	st, err := store.Open(cfg.DatabasePath(configDir()))
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Debug("position store opened", zap.String("path", st.Path()))
	if f.fromStart {
		if err := st.Forget(id); err != nil {
			logger.Warn("could not reset stored position", zap.String("post", id), zap.Error(err))
		}
	}
	sessionID, err := st.StartSession(id)
	if err != nil {
		return err
	}

	driver := &ui.ProgramDriver{}
	var srv *remote.Server
	addr := cfg.Remote.Addr
	if f.remote != "" {
		addr = f.remote
	}
	if cfg.Remote.Enabled || f.remote != "" {
		srv = remote.NewServer(driver)
	}

	var player manifest.Player
	if len(cfg.Media.Player) > 0 {
		player = manifest.ExecPlayer{Command: cfg.Media.Player}
	}

	model, err := ui.New(ui.Options{
		Post:        p,
		Presenter:   pc,
		Location:    st.Location(id),
		Fetcher:     manifest.NewClient(cfg.GetManifestTimeout()),
		Concurrency: cfg.Manifest.Concurrency,
		Player:      player,
		Remote:      srv,
	})
	if err != nil {
		return err
	}

	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	driver.Attach(prog)

	if srv != nil {
		go func() {
			if err := srv.ListenAndServe(addr); err != nil {
				logger.Error("remote stopped", zap.String("addr", addr), zap.Error(err))
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("remote shutdown", zap.Error(err))
			}
		}()
		logger.Info("remote enabled", zap.String("addr", addr))
	}

	if cfg.Watch.Enabled && !f.noWatch {
		w, err := watch.New(path, cfg.GetWatchDebounce(), func(r watch.Result) {
			prog.Send(ui.ReloadMsg(r))
		})
		if err != nil {
			logger.Warn("live reload unavailable", zap.Error(err))
		} else if err := w.Start(ctx); err != nil {
			logger.Warn("live reload unavailable", zap.Error(err))
			w.Stop()
		} else {
			defer w.Stop()
		}
	}

	_, runErr := prog.Run()
	model.Close()

	frag := fragment.Format(model.Position().Slide)
	if err := st.EndSession(sessionID, frag); err != nil {
		logger.Warn("could not close session", zap.String("session", sessionID), zap.Error(err))
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
