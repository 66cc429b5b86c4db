package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Bank of Korea ECOS API root
	ECOSBaseURL = "https://ecos.bok.or.kr/api"

	// Market interest rates (monthly) / Korea Treasury Bond 5-year
	bondStatCode = "721Y001"
	bondItemCode = "5040000"
)

type ecosRow struct {
	StatCode  string `json:"STAT_CODE"`
	ItemCode  string `json:"ITEM_CODE1"`
	Time      string `json:"TIME"`
	DataValue string `json:"DATA_VALUE"`
}

type ecosResponse struct {
	StatisticSearch *struct {
		ListTotalCount int       `json:"list_total_count"`
		Row            []ecosRow `json:"row"`
	} `json:"StatisticSearch"`
	Result *struct {
		Code    string `json:"CODE"`
		Message string `json:"MESSAGE"`
	} `json:"RESULT"`
}

// ECOSClient reads statistics from the Bank of Korea ECOS API.
type ECOSClient struct {
	client *Client
	apiKey string
	log    zerolog.Logger
}

// NewECOSClient creates an ECOS client. Options apply to the underlying Client.
func NewECOSClient(apiKey string, log zerolog.Logger, opts ...Option) *ECOSClient {
	log = log.With().Str("component", "ecos").Logger()
	opts = append([]Option{WithLogger(log)}, opts...)
	return &ECOSClient{
		client: NewClient(ECOSBaseURL, opts...),
		apiKey: apiKey,
		log:    log,
	}
}

// Stats returns the call counters.
func (e *ECOSClient) Stats() StatsSnapshot {
	return e.client.Stats()
}

// BondYield5Y returns the monthly 5-year treasury yield (percent, e.g. 3.12)
// for the month before now. ok is false when ECOS has no value for that month.
func (e *ECOSClient) BondYield5Y(ctx context.Context, now time.Time) (float64, bool, error) {
	month := previousMonth(now)
	endpoint := fmt.Sprintf("StatisticSearch/%s/json/kr/1/1000/%s/M/%s/%s/%s",
		e.apiKey, bondStatCode, month, month, bondItemCode)

	resp, err := e.client.Request(ctx, endpoint, nil, false)
	if err != nil {
		return 0, false, err
	}

	var out ecosResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return 0, false, &ExternalAPIError{Endpoint: "StatisticSearch", StatusCode: resp.StatusCode, Attempts: 1, Err: err}
	}

	if out.StatisticSearch == nil {
		if out.Result != nil && strings.HasPrefix(out.Result.Code, "INFO-200") {
			// 해당하는 데이터가 없습니다
			return 0, false, nil
		}
		code, msg := "", "missing StatisticSearch"
		if out.Result != nil {
			code, msg = out.Result.Code, out.Result.Message
		}
		return 0, false, &ExternalAPIError{Endpoint: "StatisticSearch", APIStatus: code, Attempts: 1, Err: fmt.Errorf("%s", msg)}
	}

	for _, row := range out.StatisticSearch.Row {
		if row.DataValue == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row.DataValue), 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid DATA_VALUE %q: %w", row.DataValue, err)
		}
		e.log.Debug().Str("month", row.Time).Float64("yield", v).Msg("Fetched 5y bond yield")
		return v, true, nil
	}
	return 0, false, nil
}

// previousMonth formats the month before t as YYYYMM.
func previousMonth(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, -1, 0).Format("200601")
}
