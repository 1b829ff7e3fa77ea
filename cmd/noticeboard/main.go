package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"noticeboard/internal/analyzer"
	"noticeboard/internal/config"
	"noticeboard/internal/controller"
	"noticeboard/internal/feed"
	"noticeboard/internal/remote"
	"noticeboard/internal/terminal"
	loggerpkg "noticeboard/pkg/logger"
)

var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "noticeboard",
		Usage:   "campus notice board terminal client",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the client config file",
				EnvVars: []string{"NOTICEBOARD_CLIENT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			shellCommand(),
			versionCommand(),
		},
		DefaultCommand: "shell",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "noticeboard:", err)
		os.Exit(1)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the client version",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintln(c.App.Writer, Version)
			return err
		},
	}
}

func shellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "start the interactive notice board",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "hub",
				Usage:   "hub base URL (overrides hub.url)",
				EnvVars: []string{"NOTICEBOARD_HUB_URL"},
			},
		},
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	cfg, err := config.LoadClient(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if hub := c.String("hub"); hub != "" {
		cfg.Hub.URL = hub
	}

	logger, err := loggerpkg.New(loggerpkg.Options{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Feed.Location)
	if err != nil {
		return fmt.Errorf("load feed location: %w", err)
	}
	feedOpts := feed.Options{DateLayout: cfg.Feed.DateLayout, Location: location}

	client, err := remote.NewClient(cfg.Hub.URL, 0, logger.Named("remote"))
	if err != nil {
		return err
	}
	identity := remote.NewIdentity(client)
	notices := remote.NewNotices(client)

	view := terminal.NewView(c.App.Writer, terminal.ViewOptions{})
	ctrl := controller.New(controller.Deps{
		Identity: identity,
		Profiles: remote.NewProfiles(client),
		Notices:  notices,
		Analyzer: analyzer.NewClient(cfg.Analyzer.URL, cfg.Analyzer.Timeout, logger.Named("analyzer")),
		View:     view,
	}, controller.Options{
		Faculty: controller.NewFacultyAllowList(cfg.Faculty.AllowedIDs),
		Feed:    feedOpts,
		Logger:  logger.Named("controller"),
	})
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The token is held in memory, so a fresh process always starts signed out.
	if err := ctrl.Restore(ctx); err != nil {
		logger.Warn("restore session failed", zap.Error(err))
	}

	shell := terminal.NewShell(ctrl, notices, view, terminal.ShellOptions{
		In:     os.Stdin,
		Out:    c.App.Writer,
		Feed:   feedOpts,
		Logger: logger.Named("shell"),
	})
	if err := shell.Run(ctx); err != nil {
		return err
	}

	if _, _, ok := ctrl.CurrentUser(); ok {
		// Leaving the shell signs out so the profile is not left online.
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctrl.Logout(logoutCtx); err != nil {
			logger.Warn("logout on exit failed", zap.Error(err))
		}
	}
	return nil
}
