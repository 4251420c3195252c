package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"helperbot/internal/domain"
	"helperbot/internal/logging"
	"helperbot/internal/repl"
	"helperbot/internal/tui"
)

var (
	cfgPath        string
	conversationID string
	listHistory    bool
)

var rootCmd = &cobra.Command{
	Use:   "helperbot",
	Short: "Answer product questions from a support manual",
	Long: `helperbot is a chat assistant that answers questions about a product
from a sectioned support manual. Conversations are persisted and can be
resumed with --conversation.`,
	SilenceUsage: true,
	RunE:         runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the terminal UI (default)",
	RunE:  runChat,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat line by line on stdin/stdout",
	RunE:  runREPL,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [manual files...]",
	Short: "Parse and index the manual, then print a summary",
	Long: `Parses the manual files (or the configured manual when no files are
given), indexes them into the configured document store and prints the
section count with a short frequency summary.`,
	RunE: runIngest,
}

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Print a persisted conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default ./helperbot.yaml or ~/.config/helperbot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&conversationID, "conversation", "", "Conversation id to resume (default: new timestamped id)")
	historyCmd.Flags().BoolVar(&listHistory, "list", false, "List stored conversation ids")

	rootCmd.AddCommand(chatCmd, replCmd, ingestCmd, historyCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.ForTUI(cfg.Logging, cfg.History.Dir)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, conversationID)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if err := a.watch(ctx); err != nil {
		return err
	}

	hist := a.orchestrator.History()
	header := fmt.Sprintf("[%s] %s", hist.ConversationID(), summary)
	m := tui.New(ctx, a.orchestrator, header, hist.Log())
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func runREPL(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, conversationID)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.ingest(ctx); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if err := a.watch(ctx); err != nil {
		return err
	}

	logger.Info("conversation started", zap.String("conversation_id", a.orchestrator.History().ConversationID()))
	err = repl.Run(ctx, a.orchestrator, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Manual.Files = args
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, ingestor, err := newIndexer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	paths := cfg.ManualPaths()
	if len(paths) == 0 {
		return fmt.Errorf("%w: no manual files given or configured", domain.ErrInvalidConfig)
	}
	sum, err := ingestor.Ingest(ctx, paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %d sections from %s\n", sum.Documents, strings.Join(paths, ", "))
	for _, s := range sum.Sections {
		fmt.Fprintf(out, "  #%s\n", s)
	}
	if sum.Overview != "" {
		fmt.Fprintf(out, "\nSummary: %s\n", sum.Overview)
	}
	return nil
}

// conversationLister is implemented by log stores that can enumerate conversations.
type conversationLister interface {
	Conversations(ctx context.Context) ([]string, error)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logs, err := buildLogStore(cfg.History, logger)
	if err != nil {
		return err
	}
	defer logs.Close()

	out := cmd.OutOrStdout()
	if listHistory || len(args) == 0 {
		lister, ok := logs.(conversationLister)
		if !ok {
			return fmt.Errorf("history store %q cannot list conversations; pass an id", cfg.History.Type)
		}
		ids, err := lister.Conversations(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	turns, err := logs.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("conversation %q not found", args[0])
	}
	for _, t := range turns {
		fmt.Fprintf(out, "%s: %s\n", t.Role, t.Content)
	}
	return nil
}
