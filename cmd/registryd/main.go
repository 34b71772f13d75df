// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command registryd hosts the Command Registry Runtime: it wires the
// catalogue, initializer, alert manager, and diagnostic tool together
// behind serve/report/verify subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bridge-registry/internal/alerts"
	"github.com/AleutianAI/bridge-registry/internal/catalog"
	"github.com/AleutianAI/bridge-registry/internal/diagnostic"
	"github.com/AleutianAI/bridge-registry/internal/initializer"
	"github.com/AleutianAI/bridge-registry/internal/modules"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

var (
	logLevel string
	httpAddr string

	rootCmd = &cobra.Command{
		Use:   "registryd",
		Short: "Command Registry Runtime daemon",
		Long: `registryd hosts the catalogue, module initializer, alert manager,
and diagnostic tool that back a bridge-style application's command surface.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Initialize all modules and serve the admin HTTP surface",
		RunE:  runServe,
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Initialize modules, then print a diagnostic report and exit",
		RunE:  runReport,
	}

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify every registered command and print any errors",
		RunE:  runVerify,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&httpAddr, "addr", ":8090", "address for the admin HTTP surface")
	rootCmd.AddCommand(serveCmd, reportCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime bundles the wired components shared by every subcommand.
type runtime struct {
	log   *logging.Logger
	reg   *catalog.Registry
	init  *initializer.Initializer
	alert *alerts.Manager
}

func bootstrap(dataDir string) *runtime {
	log := logging.New(logging.Config{Level: parseLevel(logLevel), Service: "registryd"})

	reg := catalog.New(catalog.WithLogger(log))
	init := initializer.New(initializer.WithLogger(log))
	alertMgr := alerts.New(alerts.WithLogger(log))

	_ = init.RegisterModule(modules.NewKeyValueModule(dataDir, log))
	_ = init.RegisterModule(modules.NewFileScannerModule(dataDir, log))

	_ = reg.RegisterCommand(catalog.CommandInfo{Name: "scan_sessions", Dependencies: []string{"database"}, Status: catalog.NewUnverifiedStatus()})
	_ = reg.RegisterCommand(catalog.CommandInfo{Name: "list_commands", Status: catalog.NewRegisteredStatus()})

	return &runtime{log: log, reg: reg, init: init, alert: alertMgr}
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	rt := bootstrap(defaultDataDir())
	ctx := context.Background()

	if errs := rt.init.InitializeAll(ctx); len(errs) > 0 {
		for _, e := range errs {
			rt.log.Error("module failed to initialize", "module", e.ModuleName, "error", e.Message)
		}
	}

	server := newAdminServer(rt)
	rt.log.Info("admin HTTP surface listening", "addr", httpAddr)
	return server.Run(httpAddr)
}

func runReport(cmd *cobra.Command, args []string) error {
	rt := bootstrap(defaultDataDir())
	ctx := context.Background()
	rt.init.InitializeAll(ctx)

	report := buildDiagnosticReport(rt)
	out, err := diagnostic.ExportJSON(report)
	if err != nil {
		return fmt.Errorf("failed to export diagnostic report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	rt := bootstrap(defaultDataDir())
	errs := rt.reg.VerifyAllCommands()
	if len(errs) == 0 {
		fmt.Println("all commands verified successfully")
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s: %s\n", e.ErrorType, e.Message)
	}
	return fmt.Errorf("%d command(s) failed verification", len(errs))
}

func buildDiagnosticReport(rt *runtime) *diagnostic.DiagnosticReport {
	all := rt.reg.GetAllCommands()
	commands := make([]diagnostic.CommandSnapshot, 0, len(all))
	for _, info := range all {
		commands = append(commands, diagnostic.CommandSnapshot{
			Name:   info.Name,
			Status: info.Status.Kind.String(),
			Reason: info.Status.Reason,
		})
	}

	states := rt.init.GetAllStates()
	moduleSnaps := make([]diagnostic.ModuleSnapshot, 0, len(states))
	for name, st := range states {
		moduleSnaps = append(moduleSnaps, diagnostic.ModuleSnapshot{Name: name, State: st.String()})
	}

	return diagnostic.GenerateReport(commands, moduleSnaps, time.Now())
}

func defaultDataDir() string {
	if dir := os.Getenv("REGISTRYD_DATA_DIR"); dir != "" {
		return dir
	}
	return "./registryd-data"
}
