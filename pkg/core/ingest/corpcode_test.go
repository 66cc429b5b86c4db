package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpCodeXML = `<?xml version="1.0" encoding="UTF-8"?>
<result>
  <list>
    <corp_code>00126380</corp_code>
    <corp_name>삼성전자</corp_name>
    <stock_code>005930</stock_code>
    <modify_date>20230110</modify_date>
  </list>
  <list>
    <corp_code>00434003</corp_code>
    <corp_name>다코</corp_name>
    <stock_code> </stock_code>
    <modify_date>20170630</modify_date>
  </list>
  <list>
    <corp_code>00164779</corp_code>
    <corp_name>SK하이닉스</corp_name>
    <stock_code>000660</stock_code>
    <modify_date>20230110</modify_date>
  </list>
</result>`

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestResolveEntityID(t *testing.T) {
	archive := zipOf(t, map[string]string{"CORPCODE.xml": corpCodeXML})
	var downloads atomic.Int32
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/corpCode.xml", r.URL.Path)
		downloads.Add(1)
		w.Write(archive)
	})

	corp, ok, err := d.ResolveEntityID(context.Background(), "005930")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "00126380", corp)

	corp, ok, err = d.ResolveEntityID(context.Background(), "660")
	require.NoError(t, err)
	assert.True(t, ok, "short codes are zero padded")
	assert.Equal(t, "00164779", corp)

	_, ok, err = d.ResolveEntityID(context.Background(), "999999")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 2, d.CorpCodeCount(), "unlisted companies are skipped")
	assert.Equal(t, int32(1), downloads.Load())
}

func TestResolveEntityID_ConcurrentCallersDownloadOnce(t *testing.T) {
	archive := zipOf(t, map[string]string{"CORPCODE.xml": corpCodeXML})
	var downloads atomic.Int32
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Write(archive)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := d.ResolveEntityID(context.Background(), "005930")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), downloads.Load())
}

func TestResolveEntityID_FailedDownloadIsNotCached(t *testing.T) {
	archive := zipOf(t, map[string]string{"CORPCODE.xml": corpCodeXML})
	var calls atomic.Int32
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write(archive)
	})

	_, _, err := d.ResolveEntityID(context.Background(), "005930")
	require.Error(t, err)
	assert.Equal(t, 0, d.CorpCodeCount())

	corp, ok, err := d.ResolveEntityID(context.Background(), "005930")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "00126380", corp)
}

func TestParseCorpCodeArchive_Errors(t *testing.T) {
	_, err := parseCorpCodeArchive([]byte(`{"status":"010","message":"등록되지 않은 키입니다."}`))
	assert.Error(t, err)

	_, err = parseCorpCodeArchive(zipOf(t, map[string]string{"readme.txt": "x"}))
	assert.Error(t, err)
}
