package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/hazira/apps/api/echo"
	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/identity"
	"github.com/trezcool/hazira/core/student"
	logsvc "github.com/trezcool/hazira/services/logger"
	sqlxrepos "github.com/trezcool/hazira/storage/database/sqlx"
	testutil "github.com/trezcool/hazira/tests"
)

type fixture struct {
	stdRepo student.Repository
	attRepo attendance.Repository
}

func setup(t *testing.T, gallery *identity.Gallery) (Server, fixture) {
	t.Helper()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	fx := fixture{
		stdRepo: sqlxrepos.NewStudentRepository(db),
		attRepo: sqlxrepos.NewAttendanceRepository(db),
	}

	conf := &core.Config{AppName: "Hazira", TestMode: true}
	conf.Identity.Tolerance = identity.DefaultTolerance
	logger := logsvc.Nop{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	// set up services
	stdSvc := student.NewService(fx.stdRepo)
	attSvc := attendance.NewService(fx.attRepo, stdSvc, attendance.Options{
		Timetable: testutil.Timetable(t),
		Logger:    logger,
	})

	// set up server
	return NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		StudentSvc:    stdSvc,
		AttendanceSvc: attSvc,
		Gallery:       gallery,
		Validate:      validate,
		Translator:    translator,
	}), fx
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
