package paste

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"dart_screener/pkg/core/llm"
	"dart_screener/pkg/core/statement"
	"dart_screener/pkg/core/utils"
	"dart_screener/pkg/models"
)

// RowMapper decides which statement rows carry which canonical fields. The
// result maps row index to field; only fields of table are produced.
type RowMapper interface {
	MapRows(ctx context.Context, st *Statement, table *statement.AliasTable) (map[int]models.Field, error)
}

// AliasMapper maps rows whose normalized label is listed in the table.
type AliasMapper struct{}

var _ RowMapper = AliasMapper{}

func (AliasMapper) MapRows(_ context.Context, st *Statement, table *statement.AliasTable) (map[int]models.Field, error) {
	out := make(map[int]models.Field)
	for i, row := range st.Rows {
		if f, ok := table.Resolve(row.Label); ok {
			out[i] = f
		}
	}
	return out, nil
}

// LLMMapper asks a model to pick the rows for each field, which copes with
// labels the alias tables do not list. Labels the model leaves unmapped are
// still resolved through the alias table, and any model or decoding failure
// falls back to AliasMapper entirely.
type LLMMapper struct {
	provider llm.Provider
	fallback RowMapper
	log      zerolog.Logger
}

var _ RowMapper = (*LLMMapper)(nil)

func NewLLMMapper(provider llm.Provider, log zerolog.Logger) *LLMMapper {
	return &LLMMapper{
		provider: provider,
		fallback: AliasMapper{},
		log:      log.With().Str("component", "llm_mapper").Logger(),
	}
}

const rowMappingSystemPrompt = `You map rows of a Korean financial statement to canonical fields.
Reply with JSON only: {"rows": [{"index": <row index>, "field": "<field name>"}]}.
Use each field at most once and only for the row that is the statement's own line for it.
Omit rows that match no field.`

type rowMappingReply struct {
	Rows []struct {
		Index *int   `json:"index" validate:"required,gte=0"`
		Field string `json:"field" validate:"required"`
	} `json:"rows" validate:"dive"`
}

func (m *LLMMapper) MapRows(ctx context.Context, st *Statement, table *statement.AliasTable) (map[int]models.Field, error) {
	if len(st.Rows) == 0 {
		return map[int]models.Field{}, nil
	}

	mapped, err := m.ask(ctx, st, table)
	if err != nil {
		m.log.Warn().Err(err).Msg("Model row mapping failed, using alias table")
		return m.fallback.MapRows(ctx, st, table)
	}

	aliased, _ := m.fallback.MapRows(ctx, st, table)
	taken := make(map[models.Field]bool, len(mapped))
	for _, f := range mapped {
		taken[f] = true
	}
	for i, f := range aliased {
		if _, ok := mapped[i]; ok || taken[f] {
			continue
		}
		mapped[i] = f
	}
	return mapped, nil
}

func (m *LLMMapper) ask(ctx context.Context, st *Statement, table *statement.AliasTable) (map[int]models.Field, error) {
	prompt, err := buildRowMappingPrompt(st, table)
	if err != nil {
		return nil, err
	}
	reply, err := m.provider.GenerateResponse(ctx, prompt, rowMappingSystemPrompt, map[string]interface{}{"json": true})
	if err != nil {
		return nil, err
	}

	var parsed rowMappingReply
	if err := utils.SmartParse(reply, &parsed); err != nil {
		return nil, err
	}

	allowed := make(map[models.Field]bool)
	for _, f := range table.Fields() {
		allowed[f] = true
	}
	out := make(map[int]models.Field)
	for _, r := range parsed.Rows {
		idx := *r.Index
		field, err := models.ParseField(strings.TrimSpace(r.Field))
		if err != nil || !allowed[field] || idx >= len(st.Rows) {
			m.log.Debug().Int("row", idx).Str("field", r.Field).Msg("Ignoring model mapping")
			continue
		}
		out[idx] = field
	}
	return out, nil
}

func buildRowMappingPrompt(st *Statement, table *statement.AliasTable) (string, error) {
	type promptRow struct {
		Index int    `json:"index"`
		Label string `json:"label"`
	}
	rows := make([]promptRow, 0, len(st.Rows))
	for i, r := range st.Rows {
		rows = append(rows, promptRow{Index: i, Label: r.Label})
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Fields (name: typical labels):\n")
	for _, f := range table.Fields() {
		fmt.Fprintf(&b, "- %s: %s\n", f, strings.Join(table.Names(f), ", "))
	}
	b.WriteString("\nRows:\n")
	b.Write(rowsJSON)
	return b.String(), nil
}
