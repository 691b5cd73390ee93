package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hychen/redspot/internal/artifacts"
	"github.com/hychen/redspot/internal/builtin"
	"github.com/hychen/redspot/internal/chain"
	"github.com/hychen/redspot/internal/compiler"
	core "github.com/hychen/redspot/internal/core"
	"github.com/hychen/redspot/internal/plugin"
	"github.com/hychen/redspot/internal/telemetry"
	"github.com/hychen/redspot/pkg/api"
)

// session is one fully composed process run: environment, collaborators
// and the bookkeeping around them.
type session struct {
	env       *core.Environment
	store     *core.Store
	collector *telemetry.Collector
	host      *plugin.Host
}

func (s *session) close() {
	s.env.Network.Disconnect()
	if s.store != nil {
		_ = s.store.Close()
	}
	s.collector.Flush(log.Logger)
	s.host.Close()
}

// bootstrap loads configuration, registers built-in tasks and plugins,
// and composes the runtime environment.
func bootstrap(cmd *cobra.Command) (*session, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := core.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	netName, _ := cmd.Flags().GetString("network")
	if netName == "" {
		netName = cfg.DefaultNetwork
	}
	logLevel, _ := cmd.Flags().GetString("log")

	client, err := chain.NewRegistry(cfg.Networks).Get(netName)
	if err != nil {
		return nil, err
	}
	if err := client.LoadSigners(); err != nil {
		return nil, err
	}

	store, err := artifacts.NewStore(cfg.Paths.Artifacts)
	if err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	composer := core.NewComposer(reg)
	comp := compiler.NewExec(cfg.Compiler.Command, cfg.Compiler.MinVersion, cfg.Compiler.Options)
	builtin.Register(reg, comp)

	host := plugin.NewHost(reg, composer)
	if err := host.LoadDir(cfg.Paths.Plugins); err != nil {
		return nil, err
	}

	env, err := composer.Compose(cfg, core.RuntimeArguments{
		Network:    netName,
		ConfigPath: cfgPath,
		LogLevel:   logLevel,
	}, client, store)
	if err != nil {
		return nil, err
	}

	history, err := core.NewStore(cfg.Paths.History)
	if err != nil {
		log.Warn().Err(err).Msg("run history disabled")
		history = nil
	}

	return &session{
		env:       env,
		store:     history,
		collector: telemetry.NewCollector(true),
		host:      host,
	}, nil
}

// dispatch runs one top-level task with raw CLI tokens, recording the run
// in the history store and the telemetry collector.
func (s *session) dispatch(cmd *cobra.Command, name string, argv []string) (any, error) {
	ctx := cmd.Context()
	runID := uuid.NewString()
	if s.store != nil {
		if err := s.store.RecordStart(ctx, runID, name, s.env.RuntimeArgs.Network); err != nil {
			log.Warn().Err(err).Msg("record run start")
		}
	}
	start := time.Now()
	res, err := s.env.RunCLI(ctx, name, argv)
	s.collector.RecordTaskRun(name, time.Since(start), err)
	if s.store != nil {
		status, msg := api.RunSucceeded, ""
		if err != nil {
			status, msg = api.RunFailed, err.Error()
		}
		if ferr := s.store.RecordFinish(ctx, runID, status, msg); ferr != nil {
			log.Warn().Err(ferr).Msg("record run finish")
		}
	}
	return res, err
}

func printResult(res any) {
	switch v := res.(type) {
	case nil:
	case string:
		fmt.Println(v)
	case []string:
		for _, line := range v {
			fmt.Println(line)
		}
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Printf("%v\n", v)
			return
		}
		fmt.Println(string(out))
	}
}

// Compile contracts
func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [sources...]",
		Short: "Compile contract sources and write artifact records",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			res, err := s.dispatch(cmd, "compile", args)
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	}
}

// Run an arbitrary task
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <task> [-- task arguments...]",
		Short: "Run a named task with schema-resolved arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			res, err := s.dispatch(cmd, args[0], args[1:])
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	}
}

// List registered tasks
func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List registered tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			all, _ := cmd.Flags().GetBool("all")
			for _, d := range s.env.Tasks.Definitions() {
				if d.IsSubtask() && !all {
					continue
				}
				fmt.Printf("%-28s %s\n", d.Name(), d.Description())
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "include subtasks")
	return cmd
}

// List signer accounts
func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the active network's signer addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			res, err := s.dispatch(cmd, "accounts", nil)
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	}
}

// Show run history
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent task runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if s.store == nil {
				return fmt.Errorf("run history is unavailable")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			recs, err := s.store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Printf("%s\t%-20s %-12s %-10s %s\n", r.StartedAt, r.Task, r.Network, r.Status, r.Error)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum rows to show")
	return cmd
}

// Initialize a project skeleton
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a starter redspot.yaml and project directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat("redspot.yaml"); err == nil {
				return fmt.Errorf("redspot.yaml already exists")
			}
			if err := os.WriteFile("redspot.yaml", []byte(starterConfig), 0644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			for _, dir := range []string{"contracts", "plugins", "artifacts"} {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
			}
			fmt.Println("created redspot.yaml, contracts/, plugins/ and artifacts/")
			return nil
		},
	}
}

// Shell completion
func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion script",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

const starterConfig = `default_network: development

networks:
  development:
    endpoint: http://127.0.0.1:9933
    accounts:
      - //Alice
    gas_limit: 50000000000

paths:
  artifacts: artifacts
  contracts: contracts
  plugins: plugins
  history: .redspot/history.db

compiler:
  command: cargo-contract
  min_version: "0.16.0"
`
