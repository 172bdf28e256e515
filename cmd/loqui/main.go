package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loqui-dev/loqui/pkg/engine"
	"github.com/loqui-dev/loqui/pkg/loquidir"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	loquiDir   string
	envFile    string
	message    string
	resume     string
	resumeLast bool
	noStream   bool
}

func main() {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "loqui",
		Short: "Chat with tool-calling language models from the terminal",
		Long: "Loqui is an interactive client for OpenAI-compatible chat APIs.\n" +
			"The model can call tools (shell, calculator, files, MCP servers);\n" +
			"loqui runs them and feeds the results back until the model answers.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd.Context(), flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to configuration file (default: .loqui/config.yaml or loqui.yaml)")
	pf.StringVar(&flags.loquiDir, "loqui-dir", loquidir.Name, "path to the .loqui directory")
	pf.StringVar(&flags.envFile, "env", ".env", "path to .env file (ignored if missing)")

	rootCmd.Flags().StringVarP(&flags.message, "message", "m", "", "send a single message and print the answer (no TUI)")
	rootCmd.Flags().StringVar(&flags.resume, "resume", "", "resume the session with the given id")
	rootCmd.Flags().BoolVar(&flags.resumeLast, "continue", false, "resume the most recent session")
	rootCmd.Flags().BoolVar(&flags.noStream, "no-stream", false, "disable streamed responses")

	rootCmd.AddCommand(
		newInitCmd(&flags),
		newModelsCmd(&flags),
		newConfigCmd(&flags),
		newSessionsCmd(&flags),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadEngine resolves the config, loads .env, and builds the engine.
func loadEngine(ctx context.Context, flags rootFlags) (*engine.Engine, error) {
	if err := loadDotEnv(flags.envFile); err != nil {
		return nil, err
	}

	resolved := resolveConfigPath(flags.configPath, flags.loquiDir)

	cfg, err := engine.LoadConfig(resolved)
	if err != nil {
		return nil, err
	}
	cfg.LoquiDir = flags.loquiDir

	if flags.noStream {
		off := false
		cfg.Chat.Stream = &off
	}
	if cfg.History.Dir == "" {
		cfg.History.Dir = loquidir.New(flags.loquiDir).SessionsDir()
	}

	return engine.New(ctx, cfg)
}

func runRoot(ctx context.Context, flags rootFlags) error {
	eng, err := loadEngine(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	sess, err := openSession(eng, flags)
	if err != nil {
		return err
	}

	if flags.message != "" {
		return runOneShot(ctx, eng, sess, flags.message)
	}

	model := newAppModel(ctx, sess, eng)

	p := tea.NewProgram(model)

	// Send the program reference so the model can start bridge goroutines.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	_, err = p.Run()
	return err
}

func openSession(eng *engine.Engine, flags rootFlags) (*engine.Session, error) {
	switch {
	case flags.resume != "":
		return eng.ResumeSession(flags.resume)
	case flags.resumeLast:
		return eng.ResumeSession("")
	default:
		return eng.NewSession(), nil
	}
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a .loqui directory with a config built interactively",
		RunE: func(_ *cobra.Command, _ []string) error {
			d := loquidir.New(flags.loquiDir)
			if d.HasConfig() {
				return fmt.Errorf("%s already exists", d.ConfigPath())
			}

			configYAML, err := runWizard()
			if err != nil {
				return err
			}

			if err := loquidir.EnsureStructure(d); err != nil {
				return err
			}
			if err := os.WriteFile(d.ConfigPath(), configYAML, 0o600); err != nil {
				return err
			}

			fmt.Printf("Initialized %s\n", d.Root())
			return nil
		},
	}
}

func newModelsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured provider offers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := loadEngine(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			ids, err := eng.Adapter().ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration with the API key masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := loadEngine(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			a := eng.Adapter()
			fmt.Printf("base_url: %s\n", a.BaseURL)
			fmt.Printf("model:    %s\n", a.Model)
			fmt.Printf("api_key:  %s\n", engine.MaskKey(a.Auth.Key))

			tools := eng.Toolbox().Tools()
			if len(tools) > 0 {
				fmt.Println("tools:")
				for _, t := range tools {
					fmt.Printf("  - %s\n", t.Name)
				}
			}
			return nil
		},
	}
}

func newSessionsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := loadEngine(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			store := eng.History()
			if store == nil {
				return fmt.Errorf("history is disabled")
			}

			infos, err := store.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("no saved sessions")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%s  %s  (%d messages)  %s\n",
					info.ID,
					info.UpdatedAt.Local().Format("2006-01-02 15:04"),
					info.Messages,
					truncate(info.Title, 48),
				)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			store := eng.History()
			if store == nil {
				return fmt.Errorf("history is disabled")
			}
			return store.Delete(args[0])
		},
	})

	return cmd
}
