package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/student"
	logsvc "github.com/trezcool/hazira/services/logger"
	reportsvc "github.com/trezcool/hazira/services/report"
	"github.com/trezcool/hazira/storage/database"
	sqlxrepos "github.com/trezcool/hazira/storage/database/sqlx"
	"github.com/trezcool/hazira/tests"
)

var (
	stdRepo student.Repository
	attRepo attendance.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	stdRepo = sqlxrepos.NewStudentRepository(db)
	attRepo = sqlxrepos.NewAttendanceRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	stdSvc := student.NewService(stdRepo)
	attSvc := attendance.NewService(attRepo, stdSvc, attendance.Options{
		Timetable: testutil.Timetable(t),
		Courses:   []string{"CS101", "MA201"},
		Logger:    logsvc.Nop{},
	})

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		db:       db.DB,
		engine:   database.EngineSQLite,
		stdSvc:   stdSvc,
		attSvc:   attSvc,
		validate: validate,
		out:      out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantErrIf  func(error) bool
	wantOut    string // expected output substring
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			case tt.wantErrIf != nil:
				assert.True(t, tt.wantErrIf(err), "cli.run() unexpected error = %v", err)
			default:
				assert.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_students(t *testing.T) {
	cli, out := setup(t)

	dir := t.TempDir()
	roster := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(roster, []byte("id,name,semester\n3,Carol,S1\n4,  Dan ,S2\n"), 0o600))
	badRoster := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badRoster, []byte("id,name,semester\n5,Eve,S1\n5,Eve again,S1\n"), 0o600))

	isValidationErr := func(err error) bool {
		var vErr *core.ValidationError
		return errors.As(err, &vErr)
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "addstudent: no args", args: []string{"addstudent"}, wantErr: errHelp},
		{name: "addstudent: no name", args: []string{"addstudent", "-id", "1"}, wantErr: errHelp},
		{name: "addstudent: bad flag", args: []string{"addstudent", "-id", "one"}, wantErr: errHelp},
		{name: "addstudent: blank name", args: []string{"addstudent", "-id", "1", "-name", "   "}, wantErrIf: func(err error) bool { return err != nil }},
		{name: "addstudent", args: []string{"addstudent", "-id", "1", "-name", "Alice", "-semester", "S1"}, wantOut: "student 1 (Alice) added"},
		{name: "addstudent: duplicate id", args: []string{"addstudent", "-id", "1", "-name", "Alice"}, wantErrIf: isValidationErr},
		{name: "importstudents: no file", args: []string{"importstudents"}, wantErr: errHelp},
		{name: "importstudents: missing file", args: []string{"importstudents", "-file", filepath.Join(dir, "nope.csv")}, wantErrIf: core.IsIOError},
		{name: "importstudents", args: []string{"importstudents", "-file", roster}, wantOut: "2 students imported"},
		{name: "importstudents: duplicate rows", args: []string{"importstudents", "-file", badRoster}, wantErrIf: isValidationErr},
	})

	students, err := stdRepo.QueryStudents(context.Background(), nil, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(students))
	for _, std := range students {
		names = append(names, std.Name)
	}
	assert.Equal(t, []string{"Alice", "Carol", "Dan"}, names)
}

func Test_commandLine_attendance(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, stdRepo, 1, "Alice", "S1")
	testutil.CreateStudent(t, stdRepo, 2, "Bob", "S1")
	testutil.CreateCourse(t, attRepo, "MA201", "Algebra")

	isValidationErr := func(err error) bool {
		var vErr *core.ValidationError
		return errors.As(err, &vErr)
	}
	isDuplicate := func(err error) bool { return errors.Is(err, attendance.ErrDuplicateSession) }
	isLookup := core.IsLookupError

	runCLITests(t, cli, out, []cliTest{
		{name: "addcourse: no code", args: []string{"addcourse"}, wantErr: errHelp},
		{name: "addcourse", args: []string{"addcourse", "-code", " ph110 ", "-title", "Physics"}, wantOut: "course PH110 added"},
		{name: "addcourse: configured course exists", args: []string{"addcourse", "-code", "cs101"}, wantErrIf: isValidationErr},
		{name: "enroll: no ids", args: []string{"enroll", "-course", "CS101"}, wantErr: errHelp},
		{name: "enroll: bad id", args: []string{"enroll", "-course", "CS101", "-ids", "1,x"}, wantErrStr: `invalid student id "x"`},
		{name: "enroll: unknown student", args: []string{"enroll", "-course", "CS101", "-ids", "99"}, wantErrIf: isLookup},
		{name: "enroll", args: []string{"enroll", "-course", "cs101", "-ids", "1, 2"}, wantOut: "CS101: 2 students enrolled"},
		{name: "mark: no key", args: []string{"mark", "-course", "CS101"}, wantErr: errHelp},
		{name: "mark: bad key", args: []string{"mark", "-course", "CS101", "-key", "2024-01-15"}, wantErr: attendance.ErrInvalidSessionKey},
		{name: "mark", args: []string{"mark", "-course", "CS101", "-key", "15-01-2024-0900", "-present", "1,7"}, wantOut: "CS101 15-01-2024-0900: 1/2 present"},
		{name: "mark: duplicate", args: []string{"mark", "-course", "CS101", "-key", "15-1-2024-900", "-present", "2"}, wantErrIf: isDuplicate},
		{name: "mark: nobody present", args: []string{"mark", "-course", "CS101", "-key", "16-01-2024-1100"}, wantOut: "CS101 16-01-2024-1100: 0/2 present"},
		{name: "percentage: no id", args: []string{"percentage"}, wantErr: errHelp},
		{name: "percentage: unknown student", args: []string{"percentage", "-id", "99"}, wantErrIf: isLookup},
		{name: "percentage: course", args: []string{"percentage", "-id", "1", "-course", "cs101"}, wantOut: "CS101: 50.00%"},
		{name: "percentage: absent student", args: []string{"percentage", "-id", "2", "-course", "CS101"}, wantOut: "CS101: 0.00%"},
		{name: "percentage: summary", args: []string{"percentage", "-id", "1"}, wantOut: "25.00%"},
		{name: "roster", args: []string{"roster"}, wantOut: "Alice"},
		{name: "report: no out", args: []string{"report", "-id", "1"}, wantErr: errHelp},
		{name: "report: unknown student", args: []string{"report", "-id", "99", "-out", filepath.Join(t.TempDir(), "r.csv")}, wantErrIf: isLookup},
		{name: "report: unsupported format", args: []string{"report", "-id", "1", "-out", filepath.Join(t.TempDir(), "r.pdf")}, wantErrIf: isValidationErr},
	})

	t.Run("report", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "alice.csv")
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "report", "-id", "1", "-out", dest}))
		assert.Contains(t, out.String(), "written to "+dest+" (2 days)")

		header, rows, err := reportsvc.Read(dest)
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "0900", "1000", "1100"}, header)
		assert.Equal(t, [][]string{
			{"15-01-2024", "CS101: P", "-", "-"},
			{"16-01-2024", "-", "-", "CS101: A"},
		}, rows)
	})
}

func Test_commandLine_freshDatabase(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, stdRepo, 42, "Ada", "S1")

	runCLITests(t, cli, out, []cliTest{
		{name: "roster", args: []string{"roster"}, wantOut: "Ada"},
		{name: "percentage", args: []string{"percentage", "-id", "42"}, wantOut: "0.00%"},
		{name: "percentage: course", args: []string{"percentage", "-id", "42", "-course", "MA201"}, wantOut: "MA201: 0.00%"},
	})

	courses, err := attRepo.QueryCourses(context.Background())
	require.NoError(t, err)
	codes := make([]string, 0, len(courses))
	for _, c := range courses {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"CS101", "MA201"}, codes)
}

func Test_parseIDs(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    []int
		wantErr bool
	}{
		{name: "empty", s: "", want: []int{}},
		{name: "blanks", s: " , ,", want: []int{}},
		{name: "single", s: "4", want: []int{4}},
		{name: "several", s: "4, 2,9", want: []int{4, 2, 9}},
		{name: "invalid", s: "4,b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDs(tt.s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
