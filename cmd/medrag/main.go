package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/core"
	"github.com/RitaRen1003/medical-rag-system/internal/server"
)

const usageText = `medrag - knowledge-graph medical question answering

Usage:
  medrag <command> [flags]

Commands:
  import       load a PubMed-style JSON corpus into the graph
  enrich       annotate stored nodes with UMLS concepts
  stats        print a graph statistics report
  query        answer a single question
  interactive  answer questions in a loop
  demo         run a set of example questions
  serve        run the HTTP API

Run 'medrag <command> -h' for command flags.
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "import":
		err = runImport(os.Args[2:])
	case "enrich":
		err = runEnrich(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	case "interactive":
		err = runInteractive(os.Args[2:])
	case "demo":
		err = runDemo(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "medrag: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and wires the system.
// The caller owns the returned system and must Close it.
func bootstrap(ctx context.Context, configPath string) (*core.System, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return core.NewSystem(ctx, cfg, logger)
}

func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lc.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level '%s': %w", lc.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	if lc.Path != "" {
		if dir := filepath.Dir(lc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		zcfg.OutputPaths = append(zcfg.OutputPaths, lc.Path)
	}
	return zcfg.Build()
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	corpus := fs.String("corpus", "", "corpus JSON path (defaults to the configured path)")
	keep := fs.Bool("keep", false, "keep existing graph data instead of clearing first")
	fs.Parse(args)

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	path := *corpus
	if path == "" {
		path = sys.Config.Import.CorpusPath
	}

	result, err := sys.Importer.Run(ctx, path, !*keep)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d papers (%d entities, %d relations, %d failed) in %s\n",
		result.Papers, result.Entities, result.Relations, result.Failed,
		result.Elapsed.Round(time.Millisecond))
	return nil
}

func runEnrich(args []string) error {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	label := fs.String("label", "", "only enrich nodes with this label (Paper, Entity)")
	limit := fs.Int("limit", 0, "maximum nodes to process (0 for the full cap)")
	node := fs.String("node", "", "enrich a single node by uuid")
	hierarchy := fs.Bool("hierarchy", false, "also link broader/narrower concept edges (needs the UMLS API key)")
	fs.Parse(args)

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	sys.Enricher.Hierarchy = *hierarchy

	if *node != "" {
		links, err := sys.Enricher.EnrichNode(ctx, *node)
		if err != nil {
			return err
		}
		fmt.Printf("Linked %d concepts to node %s\n", links, *node)
		return nil
	}

	result, err := sys.Enricher.EnrichByLabel(ctx, *label, *limit)
	if err != nil {
		return err
	}

	fmt.Printf("Enriched %d/%d nodes: %d concept links, %d hierarchy edges, %d failed in %s\n",
		result.Annotated, result.Nodes, result.Links, result.HierarchyEdges, result.Failed,
		result.Elapsed.Round(time.Millisecond))
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	stats, err := sys.Store.Stats(ctx)
	if err != nil {
		return err
	}

	report := core.RenderStats(stats)
	fmt.Print(report)

	if path := sys.Config.Logging.StatsPath; path != "" {
		if err := appendReport(path, report); err != nil {
			return err
		}
		fmt.Printf("\nStatistics report written to: %s\n", path)
	}
	return nil
}

func appendReport(path, report string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create stats log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open stats log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(report + "\n"); err != nil {
		return fmt.Errorf("write stats log: %w", err)
	}
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	question := fs.String("q", "", "medical question to answer")
	noUMLS := fs.Bool("no-umls", false, "disable UMLS annotation")
	maxFacts := fs.Int("max-facts", 0, "maximum facts in the context (0 for the configured default)")
	timeout := fs.Duration("timeout", 0, "overall deadline for the answer (0 for none)")
	fs.Parse(args)

	if strings.TrimSpace(*question) == "" {
		return fmt.Errorf("provide a question with -q")
	}

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	opts := core.AnswerOptions{
		IncludeUMLS: !*noUMLS,
		MaxFacts:    *maxFacts,
		Timeout:     *timeout,
	}
	answer, err := sys.Pipeline.AnswerQuestion(ctx, *question, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\nQuestion: %s\n", answer.Query)
	fmt.Printf("\nAnswer:\n%s\n", answer.Text)
	printAnswerMetadata(answer)
	return nil
}

func printAnswerMetadata(answer *core.Answer) {
	fmt.Printf("\nMetadata:\n")
	fmt.Printf("- Facts used: %d (%d relations, %d entities)\n",
		answer.FactCount, answer.EdgeCount, answer.NodeCount)
	fmt.Printf("- UMLS concepts: %d\n", answer.ConceptCount)
	fmt.Printf("- Model: %s\n", answer.Model)
}

func runInteractive(args []string) error {
	fs := flag.NewFlagSet("interactive", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	noUMLS := fs.Bool("no-umls", false, "disable UMLS annotation")
	fs.Parse(args)

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Medical RAG Interactive Mode")
	fmt.Println("Type 'quit' or 'exit' to stop")
	fmt.Println(strings.Repeat("=", 60))

	opts := core.AnswerOptions{IncludeUMLS: !*noUMLS}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nEnter your medical question: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "quit", "exit":
			fmt.Println("Exiting interactive mode.")
			return nil
		case "":
			fmt.Println("Please enter a valid question.")
			continue
		}

		answer, err := sys.Pipeline.AnswerQuestion(ctx, question, opts)
		if err != nil {
			fmt.Printf("An error occurred: %v\n", err)
			continue
		}

		fmt.Printf("\nAnswer:\n%s\n", answer.Text)
		printAnswerMetadata(answer)
	}
}

var demoQuestions = []string{
	"What are the mechanisms of antibiotic resistance in MRSA?",
	"How do antimicrobial peptides work against bacteria?",
	"What are the latest treatments for drug-resistant infections?",
}

func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("DEMO: Medical Question Answering")
	fmt.Println(strings.Repeat("=", 60))

	opts := core.DefaultAnswerOptions()
	opts.MaxFacts = 5
	for i, question := range demoQuestions {
		fmt.Printf("\nQuery %d: %s\n", i+1, question)
		fmt.Println(strings.Repeat("-", 40))

		answer, err := sys.Pipeline.AnswerQuestion(ctx, question, opts)
		if err != nil {
			fmt.Printf("An error occurred: %v\n", err)
			continue
		}
		fmt.Printf("Answer: %s\n", answer.Text)
		printAnswerMetadata(answer)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	addr := fs.String("addr", "", "listen address (defaults to the configured one)")
	fs.Parse(args)

	ctx := context.Background()
	sys, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	listen := *addr
	if listen == "" {
		listen = sys.Config.Server.Addr
	}
	if listen == "" {
		listen = ":8080"
	}

	srv := server.New(sys.Pipeline, sys.Store, sys.Logger)
	sys.Logger.Info("starting server", zap.String("addr", listen))
	return srv.SetupRouter().Run(listen)
}
