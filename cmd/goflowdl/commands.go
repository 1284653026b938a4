package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beyondcivic/goflowdl/pkg/datalog"
	"github.com/beyondcivic/goflowdl/pkg/ir"
	"github.com/beyondcivic/goflowdl/pkg/version"
)

// RootCmd is the goflowdl entry point: a Datalog engine and an IR
// liveness/dead-code-elimination pass, each exposed as a subcommand.
var RootCmd = &cobra.Command{
	Use:           "goflowdl",
	Short:         "A Datalog engine and IR dataflow toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Init wires persistent flags, environment binding, and subcommands.
// viper reads GOFLOWDL_-prefixed environment variables on top of flags.
func Init() {
	viper.SetEnvPrefix("GOFLOWDL")
	viper.AutomaticEnv()

	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	_ = viper.BindPFlag("verbose", RootCmd.PersistentFlags().Lookup("verbose"))

	RootCmd.AddCommand(newRunCmd())
	RootCmd.AddCommand(newDCECmd())
	RootCmd.AddCommand(newAnalyzeCmd())
	RootCmd.AddCommand(newVersionCmd())
}

// Execute runs the command tree, logging a fatal error and exiting
// non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		newLogger().WithError(err).Error("goflowdl failed")
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <program.dl> <facts.txt>",
		Short: "Evaluate a Datalog program against a fact vector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read program: %w", err)
			}
			factSrc, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read facts: %w", err)
			}

			program, err := datalog.ParseProgram(string(src))
			if err != nil {
				return err
			}
			facts, err := datalog.ParseFactVector(string(factSrc))
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"decls": len(program.Decls),
				"rules": len(program.Rules),
				"facts": len(facts),
			}).Debug("parsed program")

			derived, err := datalog.Run(program, facts)
			if err != nil {
				return err
			}
			log.WithField("total_facts", len(derived)).Debug("fixed point reached")

			for _, f := range derived {
				fmt.Fprintln(cmd.OutOrStdout(), f.String())
			}
			return nil
		},
	}
}

func newDCECmd() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "dce <program.json>",
		Short: "Run liveness-based dead-code elimination over an IR program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read ir program: %w", err)
			}

			prog, err := ir.Decode(data)
			if err != nil {
				return err
			}

			before := countInstrs(prog)
			prog, err = ir.LivenessDCE(prog)
			if err != nil {
				return err
			}
			after := countInstrs(prog)
			log.WithFields(logrus.Fields{
				"before": before,
				"after":  after,
				"pruned": before - after,
			}).Info("dead-code elimination complete")

			out, err := ir.Encode(prog)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(append(out, '\n'))
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "", "write rewritten IR here instead of stdout")
	return c
}

func newAnalyzeCmd() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "analyze <program.json>",
		Short: "Report per-function liveness and rewrite a multi-function IR program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read ir program: %w", err)
			}

			prog, err := ir.Decode(data)
			if err != nil {
				return err
			}

			reports, rewritten, err := ir.Analyze(prog)
			if err != nil {
				return err
			}
			for _, r := range reports {
				log.WithFields(logrus.Fields{
					"function": r.Name,
					"total":    r.Total,
					"dropped":  r.Dropped,
				}).Info("liveness analysis")
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d instructions, %d dead\n", r.Name, r.Total, r.Dropped)
			}

			out, err := ir.Encode(rewritten)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(append(out, '\n'))
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "", "write rewritten IR here instead of stdout")
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print goflowdl's build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stamp := version.RetrieveStamp()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if viper.GetBool("verbose") {
				return enc.Encode(stamp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.AppName, stamp.String())
			return nil
		},
	}
}

func countInstrs(prog *ir.Program) int {
	n := 0
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			n += len(b.Instrs)
		}
	}
	return n
}
