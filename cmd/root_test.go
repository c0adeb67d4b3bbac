package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcontrol/internal/config"
	"github.com/JakeFAU/jobcontrol/internal/server"
)

// These tests swap package-level factories, so none of them run in parallel.

func stubFactories(t *testing.T, load func(string, string) (config.Config, error), build func(context.Context, *config.Config, ...server.Option) (*server.App, error)) {
	t.Helper()
	origLoad, origBuild := loadConfig, buildApp
	t.Cleanup(func() {
		loadConfig, buildApp = origLoad, origBuild
	})
	if load != nil {
		loadConfig = load
	}
	if build != nil {
		buildApp = build
	}
}

func execute(args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["console"])
}

func TestConfigFlagsAreForwarded(t *testing.T) {
	var gotPath, gotEnv string
	stubFactories(t,
		func(path, env string) (config.Config, error) {
			gotPath, gotEnv = path, env
			return config.Config{}, errors.New("stop here")
		},
		nil,
	)

	err := execute("serve", "--config", "jobcontrol.yaml", "--env-file", "test.env")
	require.ErrorContains(t, err, "load config: stop here")
	require.Equal(t, "jobcontrol.yaml", gotPath)
	require.Equal(t, "test.env", gotEnv)
}

func TestServeReportsBuildError(t *testing.T) {
	stubFactories(t,
		func(string, string) (config.Config, error) { return config.Config{}, nil },
		func(context.Context, *config.Config, ...server.Option) (*server.App, error) {
			return nil, errors.New("boom")
		},
	)

	err := execute("serve")
	require.ErrorContains(t, err, "failed to initialize application services: boom")
}

func TestConsolePassesLogOutput(t *testing.T) {
	var gotOpts int
	var gotCfg *config.Config
	stubFactories(t,
		func(string, string) (config.Config, error) {
			return config.Config{Console: config.ConsoleConfig{LogFile: "ui.log"}}, nil
		},
		func(_ context.Context, cfg *config.Config, opts ...server.Option) (*server.App, error) {
			gotCfg = cfg
			gotOpts = len(opts)
			return nil, errors.New("stop here")
		},
	)

	err := execute("console")
	require.Error(t, err)
	require.Equal(t, 1, gotOpts)
	require.Equal(t, "ui.log", gotCfg.Console.LogFile)
}

func TestResolveConfigWithoutPreRun(t *testing.T) {
	_, err := resolveConfig(context.Background())
	require.EqualError(t, err, "configuration not loaded")
}
