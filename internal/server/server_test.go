package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-plan/internal/export"
	"survey-plan/internal/plan"
	"survey-plan/internal/render"
)

const squareCSV = "STN,E,N\n1,0,0\n2,0,10\n3,10,10\n4,10,0\n"

func setupRouter(t *testing.T, database *sql.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()
	h := NewHandler(plan.NewRunner(logger, nil, nil), database, render.DefaultOptions(), logger)
	return h.Router()
}

func doCSV(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":false}`, w.Body.String())
}

func TestThemes(t *testing.T) {
	r := setupRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/themes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Themes  map[string]render.Colors `json:"themes"`
		Default string                   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Themes, 3)
	assert.Equal(t, "cyan", body.Themes["Dark"].Line)
	assert.Equal(t, "Light", body.Default)
}

func TestCreatePlan_RawCSV(t *testing.T) {
	r := setupRouter(t, nil)
	w := doCSV(r, "/api/v1/plans?theme=blueprint&offset=2", squareCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status  string            `json:"status"`
		Metrics map[string]string `json:"metrics"`
		Result  struct {
			Summary plan.Summary   `json:"summary"`
			Options render.Options `json:"options"`
			Plan    render.Plan    `json:"plan"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "100.00", resp.Metrics["area_m2"])
	assert.Equal(t, "Closed", resp.Metrics["status"])
	assert.Equal(t, 4, resp.Result.Summary.StationCount)
	assert.Equal(t, render.ThemeBlueprint, resp.Result.Options.Theme)
	assert.Equal(t, 2.0, resp.Result.Options.StationLabelOffset)
	assert.Len(t, resp.Result.Plan.EdgeLabels, 4)
	assert.Equal(t, "0°00'00\"\n10.00m", resp.Result.Plan.EdgeLabels[0].Text)
}

func TestCreatePlan_Multipart(t *testing.T) {
	r := setupRouter(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "data ukur.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(squareCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCreatePlan_InputErrors(t *testing.T) {
	r := setupRouter(t, nil)
	tests := []struct {
		name string
		path string
		body string
		msg  string
	}{
		{"too few stations", "/api/v1/plans", "STN,E,N\n1,0,0\n2,1,1\n", "at least 3 stations"},
		{"missing column", "/api/v1/plans", "STN,E\n1,0\n", "missing required column"},
		{"empty body", "/api/v1/plans", "", "empty"},
		{"bad theme", "/api/v1/plans?theme=sepia", squareCSV, "unknown theme"},
		{"interval out of range", "/api/v1/plans?interval=500", squareCSV, "out of range"},
		{"bad grid flag", "/api/v1/plans?grid=maybe", squareCSV, "boolean"},
		{"NaN offset", "/api/v1/plans?offset=NaN", squareCSV, "out of range"},
		{"NaN interval", "/api/v1/plans/svg?interval=NaN", squareCSV, "out of range"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doCSV(r, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Contains(t, resp.Message, tc.msg)
		})
	}
}

func TestDownloadGeoJSON(t *testing.T) {
	r := setupRouter(t, nil)
	w := doCSV(r, "/api/v1/plans/geojson", squareCSV)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, `attachment; filename="pelan_lengkap.geojson"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "Closed", w.Header().Get("X-Plot-Status"))

	area, err := export.AreaFromJSON(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 100.0, area)
}

func TestDownloadGeoJSON_InvalidPolygonStillExports(t *testing.T) {
	r := setupRouter(t, nil)
	w := doCSV(r, "/api/v1/plans/geojson", "STN,E,N\n1,0,0\n2,10,10\n3,10,0\n4,0,10\n")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Error", w.Header().Get("X-Plot-Status"))
}

func TestRenderSVG(t *testing.T) {
	r := setupRouter(t, nil)
	w := doCSV(r, "/api/v1/plans/svg?theme=dark&grid=false", squareCSV)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg "))
	assert.Contains(t, w.Body.String(), `fill="#121212"`)
	assert.NotContains(t, w.Body.String(), "stroke-dasharray")
}

func TestLotRoutes_NoDatabase(t *testing.T) {
	r := setupRouter(t, nil)
	for _, path := range []string{"/api/v1/lots", "/api/v1/lots/A/plan", "/api/v1/lots/A/geojson"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func expectStations(mock sqlmock.Sqlmock, lot string, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT column_name FROM information_schema.columns`)).
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("e").AddRow("n"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stn, e, n FROM survey_stations`)).
		WithArgs(lot).
		WillReturnRows(rows)
}

func TestLotPlan(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	expectStations(mock, "LOT-7", sqlmock.NewRows([]string{"stn", "e", "n"}).
		AddRow(1, 0.0, 0.0).AddRow(2, 0.0, 10.0).AddRow(3, 10.0, 10.0).AddRow(4, 10.0, 0.0))

	r := setupRouter(t, database)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lots/LOT-7/plan", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Metrics map[string]string `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "100.00", resp.Metrics["area_m2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLotPlan_UnknownLot(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	expectStations(mock, "missing", sqlmock.NewRows([]string{"stn", "e", "n"}))

	r := setupRouter(t, database)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lots/missing/plan", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLotGeoJSON_Latest(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(`SELECT lot_id, COUNT`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"lot_id", "stations", "surveyed_at"}).AddRow("LOT-9", 3, time.Now()))
	expectStations(mock, "LOT-9", sqlmock.NewRows([]string{"stn", "e", "n"}).
		AddRow(1, 0.0, 0.0).AddRow(2, 4.0, 0.0).AddRow(3, 0.0, 3.0))

	r := setupRouter(t, database)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lots/latest/geojson", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	area, err := export.AreaFromJSON(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 6.0, area)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLots(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(`SELECT lot_id, COUNT`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"lot_id", "stations", "surveyed_at"}))

	r := setupRouter(t, database)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lots?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lots":[]}`, w.Body.String())
}

func TestListLots_BadLimit(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	r := setupRouter(t, database)
	for _, limit := range []string{"abc", "0", "-3", "1.5"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lots?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "limit")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
