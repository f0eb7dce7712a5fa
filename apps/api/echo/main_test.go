package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/KhanhMinhDz/CourseHub-Project/apps/api/echo"
	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/report"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	emailsvc "github.com/KhanhMinhDz/CourseHub-Project/services/email"
	inmemdb "github.com/KhanhMinhDz/CourseHub-Project/storage/database/inmem"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/files"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/tokens"
	"github.com/KhanhMinhDz/CourseHub-Project/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     Server
	conf    *core.Config
	usrRepo user.Repository
	mailSvc *emailsvc.ConsoleServiceMock

	classSvc      *classroom.Service
	assignmentSvc *assignment.Service
	attendanceSvc *attendance.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Uploads.Root = t.TempDir()
	logger := testutil.NewLogger()
	if err := core.ParseEmailTemplates(conf, logger); err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	classRepo := inmemdb.NewClassRoomRepository(db)
	assignmentRepo := inmemdb.NewAssignmentRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)

	store, err := files.NewLocalStore(conf)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	classSvc := classroom.NewService(classRepo, db, usrSvc, assignmentRepo, store, logger)
	assignmentSvc := assignment.NewService(assignmentRepo, db, classSvc, usrSvc, store, mailSvc, logger, conf)
	attSvc := attendance.NewService(attRepo, db, classSvc, classRepo)
	reportSvc := report.NewService(classSvc, attSvc, assignmentRepo)

	// set up server
	app := NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			Tokens:        tokens.NewMemoryStore(),
			UserSvc:       usrSvc,
			ClassSvc:      classSvc,
			AssignmentSvc: assignmentSvc,
			AttendanceSvc: attSvc,
			ReportSvc:     reportSvc,
		},
	)

	return &testEnv{
		app:           app,
		conf:          conf,
		usrRepo:       usrRepo,
		mailSvc:       mailSvc,
		classSvc:      classSvc,
		assignmentSvc: assignmentSvc,
		attendanceSvc: attSvc,
	}
}

func (env *testEnv) createUser(t *testing.T, name, uname, pwd string, roles ...string) user.User {
	return testutil.CreateUser(t, env.usrRepo, name, uname, uname+"@test.cd", pwd, roles, true)
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(NewClaims(usr, env.conf), []byte(env.conf.SecretKey))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request with one file under field and the given form values.
func newUploadRequest(
	t *testing.T,
	method, path, token, field, filename string,
	content []byte,
	values map[string]string,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
		if _, err = io.Copy(fw, bytes.NewReader(content)); err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
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

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
