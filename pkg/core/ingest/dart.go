package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// Open DART API root
	DARTBaseURL = "https://opendart.fss.or.kr/api"

	// ReportAnnual is the reprt_code of an annual business report (사업보고서).
	ReportAnnual = "11011"

	// MaxMultiEntities is the fnlttMultiAcnt.json corp_code limit per call.
	MaxMultiEntities = 100

	dartStatusOK     = "000"
	dartStatusNoData = "013" // 조회된 데이타가 없습니다

	annualReportName = "사업보고서"
)

// =============================================================================
// DART DATA TYPES
// =============================================================================

type dartEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CompanyInfo is the company.json payload.
type CompanyInfo struct {
	CorpCode     string `json:"corp_code"`
	CorpName     string `json:"corp_name"`
	StockName    string `json:"stock_name"`
	StockCode    string `json:"stock_code"`
	CorpCls      string `json:"corp_cls"`    // Y: KOSPI, K: KOSDAQ, N: KONEX, E: other
	IndustryCode string `json:"induty_code"` // KSIC
	AccountMonth string `json:"acc_mt"`      // fiscal year end month
}

// AccountRow is one line item of fnlttSinglAcnt.json / fnlttMultiAcnt.json.
// Amounts are comma-formatted won strings, "-" or empty when not reported.
type AccountRow struct {
	RceptNo         string `json:"rcept_no"`
	BsnsYear        string `json:"bsns_year"`
	CorpCode        string `json:"corp_code"`
	StockCode       string `json:"stock_code"`
	ReprtCode       string `json:"reprt_code"`
	AccountName     string `json:"account_nm"`
	FsDiv           string `json:"fs_div"` // CFS (consolidated) / OFS (separate)
	FsName          string `json:"fs_nm"`
	SjDiv           string `json:"sj_div"` // BS / IS
	ThstrmAmount    string `json:"thstrm_amount"`
	FrmtrmAmount    string `json:"frmtrm_amount"`
	BfefrmtrmAmount string `json:"bfefrmtrm_amount"`
	Ord             string `json:"ord"`
}

// Amounts returns current, prior and prior-prior amounts.
func (r AccountRow) Amounts() [3]string {
	return [3]string{r.ThstrmAmount, r.FrmtrmAmount, r.BfefrmtrmAmount}
}

type accountList struct {
	dartEnvelope
	List []AccountRow `json:"list"`
}

// Filing is one list.json disclosure entry.
type Filing struct {
	CorpCode   string `json:"corp_code"`
	CorpName   string `json:"corp_name"`
	StockCode  string `json:"stock_code"`
	ReportName string `json:"report_nm"`
	RceptNo    string `json:"rcept_no"`
	FilerName  string `json:"flr_nm"`
	RceptDate  string `json:"rcept_dt"`
}

// FilingPage is one page of list.json.
type FilingPage struct {
	PageNo     int      `json:"page_no"`
	PageCount  int      `json:"page_count"`
	TotalCount int      `json:"total_count"`
	TotalPage  int      `json:"total_page"`
	List       []Filing `json:"list"`
}

type filingList struct {
	dartEnvelope
	FilingPage
}

// =============================================================================
// DART CLIENT
// =============================================================================

// DARTClient calls the Open DART API. It owns the stock-code -> corp-code
// cache, which is populated at most once and never invalidated afterwards.
type DARTClient struct {
	client *Client
	apiKey string
	log    zerolog.Logger

	corpMu    sync.Mutex
	corpCodes map[string]CorpEntry
}

// NewDARTClient creates a DART client. Options apply to the underlying Client.
func NewDARTClient(apiKey string, log zerolog.Logger, opts ...Option) *DARTClient {
	log = log.With().Str("component", "dart").Logger()
	opts = append([]Option{WithLogger(log)}, opts...)
	return &DARTClient{
		client: NewClient(DARTBaseURL, opts...),
		apiKey: apiKey,
		log:    log,
	}
}

// Stats returns the call counters.
func (d *DARTClient) Stats() StatsSnapshot {
	return d.client.Stats()
}

func (d *DARTClient) params(kv ...string) url.Values {
	v := url.Values{}
	v.Set("crtfc_key", d.apiKey)
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

// getJSON requests endpoint and decodes into out. It returns noData=true for
// DART status 013; other non-000 statuses become an ExternalAPIError.
func (d *DARTClient) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}, env *dartEnvelope) (bool, error) {
	resp, err := d.client.Request(ctx, endpoint, params, false)
	if err != nil {
		return false, err
	}
	if err := resp.DecodeJSON(out); err != nil {
		return false, &ExternalAPIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Attempts: 1, Err: err}
	}
	switch env.Status {
	case dartStatusOK:
		return false, nil
	case dartStatusNoData:
		return true, nil
	default:
		return false, &ExternalAPIError{
			Endpoint:  endpoint,
			APIStatus: env.Status,
			Attempts:  1,
			Err:       errors.New(env.Message),
		}
	}
}

// FetchCompany retrieves the company overview (company.json).
func (d *DARTClient) FetchCompany(ctx context.Context, corpCode string) (*CompanyInfo, error) {
	var out struct {
		dartEnvelope
		CompanyInfo
	}
	noData, err := d.getJSON(ctx, "company.json", d.params("corp_code", corpCode), &out, &out.dartEnvelope)
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, nil
	}
	return &out.CompanyInfo, nil
}

// FetchSingleAccounts retrieves the main accounts of one company for one
// business year (fnlttSinglAcnt.json). Both CFS and OFS rows are returned.
func (d *DARTClient) FetchSingleAccounts(ctx context.Context, corpCode string, year int) ([]AccountRow, error) {
	var out accountList
	params := d.params(
		"corp_code", corpCode,
		"bsns_year", strconv.Itoa(year),
		"reprt_code", ReportAnnual,
	)
	if _, err := d.getJSON(ctx, "fnlttSinglAcnt.json", params, &out, &out.dartEnvelope); err != nil {
		return nil, err
	}
	return out.List, nil
}

// FetchMultiAccounts retrieves main accounts for up to MaxMultiEntities
// companies for one business year (fnlttMultiAcnt.json).
func (d *DARTClient) FetchMultiAccounts(ctx context.Context, corpCodes []string, year int) ([]AccountRow, error) {
	if len(corpCodes) == 0 {
		return nil, nil
	}
	if len(corpCodes) > MaxMultiEntities {
		return nil, fmt.Errorf("fnlttMultiAcnt accepts at most %d companies, got %d", MaxMultiEntities, len(corpCodes))
	}
	var out accountList
	params := d.params(
		"corp_code", strings.Join(corpCodes, ","),
		"bsns_year", strconv.Itoa(year),
		"reprt_code", ReportAnnual,
	)
	if _, err := d.getJSON(ctx, "fnlttMultiAcnt.json", params, &out, &out.dartEnvelope); err != nil {
		return nil, err
	}
	return out.List, nil
}

// ListFilings returns one page of periodic-report disclosures between bgn and
// end (YYYYMMDD).
func (d *DARTClient) ListFilings(ctx context.Context, corpCode, bgn, end string, pageNo int) (*FilingPage, error) {
	var out filingList
	params := d.params(
		"corp_code", corpCode,
		"bgn_de", bgn,
		"end_de", end,
		"pblntf_ty", "A",
		"page_no", strconv.Itoa(pageNo),
		"page_count", "100",
	)
	if _, err := d.getJSON(ctx, "list.json", params, &out, &out.dartEnvelope); err != nil {
		return nil, err
	}
	return &out.FilingPage, nil
}

// FindAnnualReport finds the rcept_no of the business report for fiscal year
// `year`. Annual reports are filed between March 1 and April 30 of the next
// year and their receipt number starts with the filing year.
func (d *DARTClient) FindAnnualReport(ctx context.Context, corpCode string, year int) (string, bool, error) {
	next := strconv.Itoa(year + 1)
	bgn, end := next+"0301", next+"0430"

	for page := 1; ; page++ {
		fp, err := d.ListFilings(ctx, corpCode, bgn, end, page)
		if err != nil {
			return "", false, err
		}
		for _, f := range fp.List {
			if strings.Contains(f.ReportName, annualReportName) && strings.HasPrefix(f.RceptNo, next) {
				return f.RceptNo, true, nil
			}
		}
		if page >= fp.TotalPage {
			return "", false, nil
		}
	}
}

// DownloadDocument downloads the original disclosure archive (document.xml),
// a zip of the report's XML members.
func (d *DARTClient) DownloadDocument(ctx context.Context, rceptNo string) ([]byte, error) {
	resp, err := d.client.Request(ctx, "document.xml", d.params("rcept_no", rceptNo), true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ConsolidatedFirst orders rows so CFS rows come before OFS rows, keeping the
// upstream order within each group.
func ConsolidatedFirst(rows []AccountRow) []AccountRow {
	out := make([]AccountRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FsDiv == "CFS" && out[j].FsDiv != "CFS"
	})
	return out
}
