package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/observability"
	"github.com/spec-kit/marketplace-portal/internal/persistence"
	"github.com/spec-kit/marketplace-portal/internal/service"
	"github.com/spec-kit/marketplace-portal/internal/worker"
)

// env is what every command runs against.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	portal *service.Portal
	close  func()
}

// envFactory builds the command environment. Tests swap it for one backed by
// an in-process sandbox.
type envFactory func(ctx context.Context) (*env, error)

// NewRootCommand builds the portal CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultEnv)
}

func newRootCommand(factory envFactory) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:           "portal",
		Short:         "Marketplace portal client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&baseURL, "api", "", "backend base URL (overrides API_BASE_URL)")

	load := func(c *cobra.Command) (*env, error) {
		if baseURL != "" {
			if err := os.Setenv("API_BASE_URL", baseURL); err != nil {
				return nil, err
			}
		}
		return factory(c.Context())
	}

	cmd.AddCommand(
		newLoginCommand(load),
		newRegisterCommand(load),
		newLogoutCommand(load),
		newWhoamiCommand(load),
		newRefreshCommand(load),
		newKeepaliveCommand(load),
		newRequestsCommand(load),
		newPageCommand(load),
		newUsersCommand(load),
		newPagesCommand(load),
		newDashboardCommand(load),
	)
	return cmd
}

type loader func(*cobra.Command) (*env, error)

func defaultEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	store, closeStore, err := persistence.OpenSessionStore(ctx, *cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	portal := service.NewPortal(service.PortalDependencies{
		Config: *cfg,
		Store:  store,
		Logger: logger,
	})
	worker.StartNotificationWorker(service.NewNotificationService(portal.Events, logger))
	return &env{
		cfg:    cfg,
		logger: logger,
		portal: portal,
		close: func() {
			closeStore()
			_ = logger.Sync()
		},
	}, nil
}

// run loads the environment, hands it to fn and releases it afterwards.
func run(load loader, fn func(cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := load(cmd)
		if err != nil {
			return err
		}
		if e.close != nil {
			defer e.close()
		}
		return fn(cmd, e)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireUser(cmd *cobra.Command, e *env) (*domain.User, error) {
	e.portal.Sessions.Rehydrate(cmd.Context())
	user := e.portal.Sessions.CurrentUser()
	if user == nil {
		return nil, fmt.Errorf("not logged in; run `portal login` first")
	}
	return user, nil
}

// openUpload checks that path is readable and returns an upload that reopens
// it on every send. An empty path means no file.
func openUpload(path string) (*domain.Upload, error) {
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return domain.FileUpload(path, mime.TypeByExtension(filepath.Ext(path))), nil
}
