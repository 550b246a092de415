package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kato-engine/kato"
	"github.com/kato-engine/kato/pkg/session"
	"github.com/kato-engine/kato/pkg/stm"
	"github.com/kato-engine/kato/pkg/symbol"
)

var (
	dbPath    string
	sessionID string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "katoctl",
	Short: "CLI tool for the KATO pattern-learning engine",
	Long:  `A command-line interface for observing events, learning patterns, and fetching predictions from a KATO knowledge base.`,
}

var observeCmd = &cobra.Command{
	Use:   "observe <symbol> [symbol...]",
	Short: "Observe an event (one or more symbols) into a session's short-term memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		learned, err := engine.Observe(sessionID, symbol.Event(args))
		if err != nil {
			return fmt.Errorf("observe failed: %w", err)
		}
		if learned != "" {
			fmt.Printf("observed; auto-learn produced pattern %s\n", learned)
		} else {
			fmt.Println("observed")
		}
		return nil
	},
}

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Learn the session's current short-term memory into a durable pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		name, err := engine.Learn(sessionID)
		if err != nil {
			return fmt.Errorf("learn failed: %w", err)
		}
		fmt.Printf("learned pattern %s\n", name)
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Get ranked predictions for the session's current short-term memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		preds, err := engine.GetPredictions(sessionID)
		if err != nil {
			return fmt.Errorf("predict failed: %w", err)
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			data, _ := json.MarshalIndent(preds, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("%d predictions:\n", len(preds))
		for i, p := range preds {
			fmt.Printf("%d. %s (similarity=%.4f potential=%.4f confluence=%.4f)\n",
				i+1, p.Name, p.Similarity, p.Potential, p.Confluence)
			if verbose {
				fmt.Printf("   past: %v present: %v future: %v\n", p.Past, p.Present, p.Future)
				fmt.Printf("   missing: %v extras: %v\n", p.Missing, p.Extras)
			}
		}
		return nil
	},
}

var clearSTMCmd = &cobra.Command{
	Use:   "clear-stm",
	Short: "Clear the session's short-term memory without learning it",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.ClearSTM(sessionID); err != nil {
			return fmt.Errorf("clear-stm failed: %w", err)
		}
		fmt.Println("short-term memory cleared")
		return nil
	},
}

var clearAllCmd = &cobra.Command{
	Use:   "clear-all",
	Short: "Wipe every learned pattern, the index layer, and every session's short-term memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Print("This deletes every learned pattern permanently. Continue? [y/N]: ")
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("cancelled")
				return nil
			}
		}

		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.ClearAll(); err != nil {
			return fmt.Errorf("clear-all failed: %w", err)
		}
		fmt.Println("knowledge base, index, and sessions wiped")
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		maxLen, _ := cmd.Flags().GetInt("max-pattern-length")
		stmMode, _ := cmd.Flags().GetString("stm-mode")

		sess, err := engine.CreateSession(session.Config{
			MaxPatternLength: maxLen,
			STMMode:          stm.Mode(stmMode),
		})
		if err != nil {
			return fmt.Errorf("session create failed: %w", err)
		}
		fmt.Println(sess.ID)
		return nil
	},
}

var vectorCmd = &cobra.Command{
	Use:   "vectorize <v1,v2,...>",
	Short: "Quantize a raw vector into a stable VCTR| symbol name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vector, err := parseVector(args[0])
		if err != nil {
			return err
		}

		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		name, err := engine.QuantizeVector(vector)
		if err != nil {
			return fmt.Errorf("vectorize failed: %w", err)
		}
		fmt.Println(name)
		return nil
	},
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", part, err)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

func openEngine() (*kato.Engine, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path not specified")
	}
	return kato.New(dbPath, 0)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "kato.db", "Knowledge base file path")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "Session id")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	predictCmd.Flags().Bool("json", false, "Output as JSON")
	clearAllCmd.Flags().Bool("force", false, "Skip confirmation prompt")

	sessionCreateCmd.Flags().Int("max-pattern-length", 0, "Max short-term memory length before auto-learn (0 for unbounded)")
	sessionCreateCmd.Flags().String("stm-mode", "CLEAR", "Auto-learn mode: CLEAR, ROLLING, or NONE")
	sessionCmd.AddCommand(sessionCreateCmd)

	rootCmd.AddCommand(
		observeCmd,
		learnCmd,
		predictCmd,
		clearSTMCmd,
		clearAllCmd,
		sessionCmd,
		vectorCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
