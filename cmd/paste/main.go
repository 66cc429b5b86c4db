package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"dart_screener/pkg/core/calc"
	"dart_screener/pkg/core/config"
	"dart_screener/pkg/core/llm"
	"dart_screener/pkg/core/paste"
	"dart_screener/pkg/models"
)

func main() {
	bsFile := flag.String("bs", "", "balance sheet paste (file path, - for stdin)")
	cfFile := flag.String("cf", "", "cash flow paste (file path, - for stdin)")
	useLLM := flag.Bool("llm", false, "map rows with the configured LLM provider")
	corpCode := flag.String("corp", "", "emit a company record for this corp code instead of the row array")
	configFile := flag.String("config", "", "optional config file (yaml, toml, json)")
	envFile := flag.String("env", ".env", "dotenv file")
	flag.Parse()

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	cfg, err := config.Load(config.Options{EnvFile: *envFile, ConfigFile: *configFile}, boot)
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	log := boot.Level(cfg.Level())

	if *bsFile == "-" && *cfFile == "-" {
		log.Fatal().Msg("only one of -bs and -cf can read stdin")
	}
	bs, err := readInput(*bsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("balance sheet")
	}
	cf, err := readInput(*cfFile)
	if err != nil {
		log.Fatal().Err(err).Msg("cash flow")
	}

	var mapper paste.RowMapper = paste.AliasMapper{}
	if *useLLM {
		provider, ok, err := llm.NewProvider(cfg.LLMSettings())
		switch {
		case err != nil:
			log.Fatal().Err(err).Msg("llm provider")
		case !ok:
			log.Warn().Str("provider", cfg.LLMProvider).Msg("no API key for the LLM provider, using alias mapping")
		default:
			mapper = paste.NewLLMMapper(provider, log)
		}
	}

	res, err := paste.Process(context.Background(), bs, cf, mapper)
	if err != nil {
		log.Fatal().Err(err).Msg("parse")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if *corpCode == "" {
		rows := res.Rows()
		if rows == nil {
			rows = []paste.Row{}
		}
		if err := enc.Encode(rows); err != nil {
			log.Fatal().Err(err).Msg("encode")
		}
		return
	}

	rec := models.NewCompanyRecord(*corpCode)
	n := paste.Apply(rec, res.Figures)
	calc.Compute(rec, calc.Params{TaxRate: cfg.TaxFraction(), EquityRiskPremium: cfg.EquityRiskPremium}, log)
	log.Info().Int("values", n).Ints("years", res.Figures.Years()).Msg("paste applied")
	if err := enc.Encode(rec); err != nil {
		log.Fatal().Err(err).Msg("encode")
	}
}

func readInput(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
