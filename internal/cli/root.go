// Package cli implements the vendra command line: interactive practice
// sessions against a simulated client, plus post-call analysis.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/vendra-ai/vendra/internal/analysis"
	"github.com/vendra-ai/vendra/internal/conversation"
	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/provider"
	"github.com/vendra-ai/vendra/internal/simstore"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "vendra",
	Short: "Practice sales calls against a simulated client",
	RunE:  runSimulate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vendra %s\n", Version)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Start an interactive practice call",
	RunE:  runSimulate,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Produce the coaching report for a stored session",
	RunE:  runAnalyze,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored practice sessions, newest first",
	RunE:  runList,
}

var (
	flagProduct      string
	flagDescription  string
	flagPrice        string
	flagObjective    string
	flagContact      string
	flagIntensity    string
	flagRealism      string
	flagAllowHangups bool
	flagModel        string
	flagTable        string
	flagRegion       string
	flagSessionID    string
	flagLimit        int
	flagCursor       string
	flagJSON         bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(listCmd)

	for _, cmd := range []*cobra.Command{rootCmd, simulateCmd} {
		cmd.Flags().StringVarP(&flagProduct, "product", "p", "", "Product or service being sold (required)")
		cmd.Flags().StringVarP(&flagDescription, "description", "d", "", "Short product description")
		cmd.Flags().StringVar(&flagPrice, "price", "", "Pricing and conditions")
		cmd.Flags().StringVarP(&flagObjective, "objective", "o", "Cerrar la venta", "Call objective")
		cmd.Flags().StringVarP(&flagContact, "contact", "c", "cold_call", "Contact type: cold_call, follow_up, inbound_callback")
		cmd.Flags().StringVarP(&flagIntensity, "intensity", "i", "neutro", "Client difficulty: tranquilo, neutro, dificil")
		cmd.Flags().StringVarP(&flagRealism, "realism", "r", "natural", "Speech naturalness: natural, humano, exigente")
		cmd.Flags().BoolVar(&flagAllowHangups, "allow-hangups", false, "Let the client end the call when frustrated")
		cmd.Flags().StringVarP(&flagModel, "model", "m", "offline", "Client model: haiku, sonnet, nova-lite, offline")
		cmd.Flags().StringVarP(&flagTable, "table", "t", "", "DynamoDB table for persistence (empty = in-memory)")
		cmd.Flags().StringVar(&flagRegion, "region", "us-east-1", "AWS region for DynamoDB")
	}

	analyzeCmd.Flags().StringVarP(&flagSessionID, "session", "s", "", "Session ID to analyze (required)")
	analyzeCmd.Flags().StringVarP(&flagModel, "model", "m", "offline", "Analysis model: haiku, sonnet, nova-lite, offline")
	analyzeCmd.Flags().StringVarP(&flagTable, "table", "t", "", "DynamoDB table holding the session (required)")
	analyzeCmd.Flags().StringVar(&flagRegion, "region", "us-east-1", "AWS region for DynamoDB")
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the report as JSON")

	listCmd.Flags().StringVarP(&flagTable, "table", "t", "", "DynamoDB table holding the sessions (required)")
	listCmd.Flags().StringVar(&flagRegion, "region", "us-east-1", "AWS region for DynamoDB")
	listCmd.Flags().IntVarP(&flagLimit, "limit", "l", 20, "Maximum number of sessions")
	listCmd.Flags().StringVar(&flagCursor, "cursor", "", "Pagination cursor from a previous list call")
}

func Execute() error {
	return rootCmd.Execute()
}

func buildProvider(model string) (provider.Provider, error) {
	if model == "offline" {
		return nil, nil
	}
	validModels := map[string]bool{"haiku": true, "sonnet": true, "nova-lite": true}
	if !validModels[model] {
		return nil, fmt.Errorf("invalid model %q: must be haiku, sonnet, nova-lite, or offline", model)
	}
	if (model == "haiku" || model == "sonnet") && os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, fmt.Errorf("missing required environment variable ANTHROPIC_API_KEY for model %q", model)
	}
	return provider.New(model)
}

func buildStore(cmd *cobra.Command) (simstore.Store, error) {
	if flagTable == "" {
		return simstore.NewMemoryStore(), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(),
		awsconfig.WithRegion(flagRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return simstore.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), flagTable), nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if flagProduct == "" {
		return fmt.Errorf("--product (-p) is required")
	}

	validContacts := map[string]bool{"cold_call": true, "follow_up": true, "inbound_callback": true}
	if !validContacts[flagContact] {
		return fmt.Errorf("invalid contact type %q: must be cold_call, follow_up, or inbound_callback", flagContact)
	}
	validIntensities := map[string]bool{"tranquilo": true, "neutro": true, "dificil": true}
	if !validIntensities[flagIntensity] {
		return fmt.Errorf("invalid intensity %q: must be tranquilo, neutro, or dificil", flagIntensity)
	}
	validRealisms := map[string]bool{"natural": true, "humano": true, "exigente": true}
	if !validRealisms[flagRealism] {
		return fmt.Errorf("invalid realism %q: must be natural, humano, or exigente", flagRealism)
	}

	p, err := buildProvider(flagModel)
	if err != nil {
		return err
	}
	store, err := buildStore(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.DiscardHandler)
	engine := conversation.NewEngine(store, p, logger)
	analyzer := analysis.NewEngine(store, p, logger)

	scenario := persona.Scenario{
		ProductName:   flagProduct,
		Description:   flagDescription,
		PriceDetails:  flagPrice,
		CallObjective: flagObjective,
		ContactType:   persona.ContactType(flagContact),
		SimulationPreferences: persona.SimulationPreferences{
			ClientIntensity: persona.Intensity(flagIntensity),
			Realism:         persona.Realism(flagRealism),
			AllowHangups:    flagAllowHangups,
		},
	}

	sess, err := engine.StartSession(cmd.Context(), scenario)
	if err != nil {
		return err
	}

	return runPracticeCall(cmd.Context(), engine, analyzer, sess)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if flagSessionID == "" {
		return fmt.Errorf("--session (-s) is required")
	}
	if flagTable == "" {
		return fmt.Errorf("--table (-t) is required: analysis needs the store that holds the session")
	}

	p, err := buildProvider(flagModel)
	if err != nil {
		return err
	}
	store, err := buildStore(cmd)
	if err != nil {
		return err
	}

	analyzer := analysis.NewEngine(store, p, slog.New(slog.DiscardHandler))
	report, err := analyzer.Analyze(cmd.Context(), flagSessionID)
	if errors.Is(err, simstore.ErrAnalysisExists) {
		report, err = analyzer.Get(cmd.Context(), flagSessionID)
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return printReportJSON(report)
	}
	printReport(report)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	if flagTable == "" {
		return fmt.Errorf("--table (-t) is required")
	}

	store, err := buildStore(cmd)
	if err != nil {
		return err
	}

	sessions, next, err := store.ListSessions(cmd.Context(), flagLimit, flagCursor)
	if err != nil {
		return err
	}

	fmt.Printf("\n%-28s %-16s %-22s %-12s %s\n", "SESSION", "STATUS", "PRODUCT", "OUTCOME", "CREATED")
	fmt.Println(strings.Repeat("-", 96))
	for _, s := range sessions {
		outcome := s.Outcome
		if outcome == "" {
			outcome = "-"
		}
		fmt.Printf("%-28s %-16s %-22s %-12s %s\n", s.ID, s.Status, truncate(s.Scenario.ProductName, 20), outcome, s.CreatedAt)
	}
	if next != "" {
		fmt.Printf("\nMore results: --cursor %s\n", next)
	}
	fmt.Println()
	return nil
}

func printReport(report *simstore.Analysis) {
	fmt.Printf("\nSesión %s · puntaje %d/100\n\n", report.SessionID, report.Score)

	if len(report.Successes) > 0 {
		fmt.Println("Aciertos:")
		for _, s := range report.Successes {
			fmt.Printf("  + %s\n", s)
		}
		fmt.Println()
	}

	fmt.Println("Mejoras:")
	for _, imp := range report.Improvements {
		fmt.Printf("  - %s: %s\n", imp.Title, imp.Action)
	}
	fmt.Println()

	fmt.Println("Momentos clave:")
	for _, km := range report.KeyMoments {
		fmt.Printf("  [turno %d] %q\n    %s\n    → %s\n", km.TurnIndex, km.Quote, km.Insight, km.Recommendation)
	}
	fmt.Println()
}

// printReportJSON writes the report as JSON for scripting.
func printReportJSON(report *simstore.Analysis) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
