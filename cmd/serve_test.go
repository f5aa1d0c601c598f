package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/identity"
	"github.com/sells-group/salespulse/internal/ingest"
	"github.com/sells-group/salespulse/internal/model"
	"github.com/sells-group/salespulse/internal/store"
)

func newTestEnv(t *testing.T) *serverEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	return &serverEnv{
		store:     st,
		ingestor:  ingest.New(st, identity.NewResolver(identity.NewOverrides(nil))),
		secret:    "test-secret",
		maxSkew:   300 * time.Second,
		maxUpload: 1 << 20,
		uploadDir: t.TempDir(),
	}
}

func TestVerifyUpload(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)
	body := []byte("CardCode,PostingDate\n")
	ts := fmt.Sprintf("%d", now.Unix())
	sig := uploadSignature("test-secret", ts, body)

	assert.NoError(t, verifyUpload("test-secret", 300*time.Second, now, ts, sig, body))
	assert.Error(t, verifyUpload("other-secret", 300*time.Second, now, ts, sig, body),
		"wrong secret must fail")
	assert.Error(t, verifyUpload("test-secret", 300*time.Second, now, ts, sig, []byte("tampered")),
		"tampered body must fail")
	assert.Error(t, verifyUpload("test-secret", 300*time.Second, now.Add(301*time.Second), ts, sig, body),
		"stale timestamp must fail")
	assert.Error(t, verifyUpload("test-secret", 300*time.Second, now, "", "", body),
		"missing headers must fail")
	assert.Error(t, verifyUpload("test-secret", 300*time.Second, now, "not-a-number", sig, body),
		"malformed timestamp must fail")
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newTestEnv(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServeGetMetrics(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SaveMetrics(context.Background(), []model.AccountMetrics{{
		CanonicalCode: "C1000",
		RFMSegment:    "Champions",
		HealthScore:   90,
		PriorityScore: 5,
		CalculatedAt:  time.Now().UTC(),
	}}))
	router := newRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts/C1000/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var m model.AccountMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "Champions", m.RFMSegment)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts/NOPE/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeListAccounts(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SaveMetrics(context.Background(), []model.AccountMetrics{
		{CanonicalCode: "C1000", RFMSegment: "At Risk", PriorityScore: 70, CalculatedAt: time.Now().UTC()},
		{CanonicalCode: "C2000", RFMSegment: "Champions", PriorityScore: 10, CalculatedAt: time.Now().UTC()},
	}))
	router := newRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts?segment=At+Risk", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []model.AccountMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "C1000", list[0].CanonicalCode)
}

func TestServeUpload(t *testing.T) {
	router := newRouter(newTestEnv(t))
	body := []byte("CardCode,CardName,Address,PostingDate,ItemCode,Quantity,LineTotal\n" +
		"C1000,Green Leaf Market,12 Main St,2025-03-01,SKU-1,2,100.00\n")
	ts := fmt.Sprintf("%d", time.Now().Unix())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", uploadSignature("test-secret", ts, body))
	req.Header.Set("X-Filename", "weekly.csv")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.NotEmpty(t, resp["upload_id"])
}

func TestServeUpload_Rejections(t *testing.T) {
	router := newRouter(newTestEnv(t))
	body := []byte("CardCode,PostingDate\n")
	ts := fmt.Sprintf("%d", time.Now().Unix())

	// Bad signature.
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", "deadbeef")
	req.Header.Set("X-Filename", "weekly.csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid signature but no filename.
	req = httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", uploadSignature("test-secret", ts, body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
