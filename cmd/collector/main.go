package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"dart_screener/pkg/core/config"
	"dart_screener/pkg/core/ingest"
	"dart_screener/pkg/core/pipeline"
	"dart_screener/pkg/core/store"
	"dart_screener/pkg/core/xbrl"
)

func main() {
	stocks := flag.String("stocks", "", "comma-separated 6-digit stock codes")
	stockFile := flag.String("file", "", "file with one stock code per line")
	corpCode := flag.String("corp", "", "collect a single company by 8-digit corp code")
	nYears := flag.Int("years", 5, "number of fiscal years ending last year")
	configFile := flag.String("config", "", "optional config file (yaml, toml, json)")
	envFile := flag.String("env", ".env", "dotenv file")
	streamIndexer := flag.Bool("stream-indexer", false, "index XBRL with the streaming decoder instead of the regex scanner")
	skipXBRL := flag.Bool("skip-xbrl", false, "skip document.xml enrichment")
	asJSON := flag.Bool("json", false, "print results as JSON lines")
	flag.Parse()

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	cfg, err := config.Load(config.Options{EnvFile: *envFile, ConfigFile: *configFile}, boot)
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	if err := cfg.RequireDART(); err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	log := boot.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		TaxRate:           cfg.TaxFraction(),
		EquityRiskPremium: cfg.EquityRiskPremium,
		XBRLWorkers:       cfg.ParallelWorkers,
		SkipXBRL:          *skipXBRL,
	}
	if *streamIndexer {
		opts.XBRLIndexer = xbrl.StreamIndexer{}
	}

	dart := ingest.NewDARTClient(cfg.DARTAPIKey, log, cfg.ClientOptions()...)
	orch := pipeline.NewOrchestrator(dart, opts, log)
	if cfg.ECOSAPIKey != "" {
		orch.SetBondYieldSource(ingest.NewECOSClient(cfg.ECOSAPIKey, log, cfg.ClientOptions()...))
	} else {
		log.Warn().Msg("ECOS_API_KEY not set, WACC will be left empty")
	}
	if cfg.DatabaseURL != "" {
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database")
		}
		defer pool.Close()
		repo := store.NewPGStore(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema")
		}
		orch.SetRepository(repo)
	} else {
		log.Warn().Msg("DATABASE_URL not set, results will not be saved")
	}

	years := pipeline.RecentYears(time.Now(), *nYears)

	var results []pipeline.RunResult
	if *corpCode != "" {
		res, _ := orch.CollectOne(ctx, *corpCode, years)
		results = append(results, res)
	} else {
		codes, err := stockCodes(*stocks, *stockFile)
		if err != nil {
			log.Fatal().Err(err).Msg("stock codes")
		}
		if len(codes) == 0 {
			fmt.Fprintln(os.Stderr, "usage: collector -stocks 005930,000660 | -file codes.txt | -corp 00126380")
			os.Exit(2)
		}
		results = orch.RunBatch(ctx, codes, years)
	}

	if *asJSON {
		printJSON(results)
	} else {
		printTable(results)
	}
}

// stockCodes merges the -stocks list and the -file lines, zero-padding each
// code to 6 digits. Blank lines and lines starting with # are skipped.
func stockCodes(list, file string) ([]string, error) {
	var raw []string
	if list != "" {
		raw = append(raw, strings.Split(list, ",")...)
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			raw = append(raw, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
	}

	var codes []string
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" || strings.HasPrefix(c, "#") {
			continue
		}
		if len(c) < 6 {
			c = strings.Repeat("0", 6-len(c)) + c
		}
		codes = append(codes, c)
	}
	return codes, nil
}

type resultLine struct {
	RunID     string   `json:"run_id,omitempty"`
	StockCode string   `json:"stock_code,omitempty"`
	CorpCode  string   `json:"corp_code,omitempty"`
	Name      string   `json:"name,omitempty"`
	Status    string   `json:"status"`
	Passed    bool     `json:"passed_all_filters"`
	Error     string   `json:"error,omitempty"`
	Failures  []string `json:"failures,omitempty"`
}

func printJSON(results []pipeline.RunResult) {
	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		line := resultLine{
			RunID: r.RunID, StockCode: r.StockCode, CorpCode: r.CorpCode, Name: r.Name,
			Status: string(r.Status), Passed: r.Passed,
		}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		for _, f := range r.Failures {
			line.Failures = append(line.Failures, f.Error())
		}
		_ = enc.Encode(line)
	}
}

func printTable(results []pipeline.RunResult) {
	passed := 0
	for _, r := range results {
		mark := " "
		if r.Passed {
			mark = "*"
			passed++
		}
		fmt.Printf("%s %-6s %-8s %-10s %s", mark, r.StockCode, r.CorpCode, r.Status, r.Name)
		if r.Err != nil {
			fmt.Printf("  (%v)", r.Err)
		} else if len(r.Failures) > 0 {
			fmt.Printf("  (%d partial failures)", len(r.Failures))
		}
		fmt.Println()
	}
	fmt.Printf("\n%d companies, %d passed all filters\n", len(results), passed)
}
