// Command classify runs the fake news model from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"newscheck/config"
	"newscheck/detector"
	"newscheck/logging"
	"newscheck/ml"
)

type options struct {
	configPath string
	vectorizer string
	classifier string
	inspect    bool
	terms      bool
	logLevel   string
}

type classifyOutput struct {
	ml.Prediction
	Terms []string `json:"terms,omitempty"`
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify news text as fake or real",
		Example: `
  # Classify a headline
  classify "Miracle cure the government does not want you to know"

  # Read the article from stdin
  cat article.txt | classify

  # Show which model is configured
  classify --inspect`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, stdin, stdout)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to config file")
	cmd.Flags().StringVar(&opts.vectorizer, "vectorizer", "", "Override model.vectorizer_path")
	cmd.Flags().StringVar(&opts.classifier, "classifier", "", "Override model.classifier_path")
	cmd.Flags().BoolVar(&opts.inspect, "inspect", false, "Print model info instead of classifying")
	cmd.Flags().BoolVar(&opts.terms, "terms", false, "Include the vocabulary terms found in the text")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	return cmd
}

func run(ctx context.Context, opts options, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.vectorizer != "" {
		cfg.Model.VectorizerPath = opts.vectorizer
	}
	if opts.classifier != "" {
		cfg.Model.ClassifierPath = opts.classifier
	}

	logger, err := logging.New(logging.Options{Level: opts.logLevel, Format: "console"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, err := detector.New(detector.Options{
		VectorizerPath: cfg.Model.VectorizerPath,
		ClassifierPath: cfg.Model.ClassifierPath,
		MaxTextLength:  cfg.Predict.MaxTextLength,
	}, logger)
	if err != nil {
		return err
	}
	info, err := svc.Reload()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if opts.inspect {
		return enc.Encode(info)
	}

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	result, err := svc.Predict(ctx, text)
	if err != nil {
		return err
	}
	out := classifyOutput{Prediction: result}
	if opts.terms {
		out.Terms = svc.Terms(text)
	}
	return enc.Encode(out)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
