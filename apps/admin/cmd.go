package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/student"
	reportsvc "github.com/trezcool/hazira/services/report"
)

var errHelp = errors.New("help provided")

// dataCommands read or write attendance data; they need the configured courses to exist.
var dataCommands = map[string]bool{
	"addstudent":     true,
	"importstudents": true,
	"addcourse":      true,
	"enroll":         true,
	"mark":           true,
	"percentage":     true,
	"roster":         true,
	"report":         true,
}

type commandLine struct {
	db       *sql.DB
	engine   string
	stdSvc   student.Service
	attSvc   attendance.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) on the database")
	fmt.Fprintln(cli.out, "  addstudent -id ID -name NAME [-semester SEMESTER] - add a student to the roster")
	fmt.Fprintln(cli.out, "  importstudents -file FILE.csv - import a roster (columns: id,name,semester)")
	fmt.Fprintln(cli.out, "  addcourse -code CODE [-title TITLE] - add a course")
	fmt.Fprintln(cli.out, "  enroll -course CODE -ids ID,ID... - enroll students in a course")
	fmt.Fprintln(cli.out, "  mark -course CODE -key DD-MM-YYYY-HHMM [-present ID,ID...] - record a session")
	fmt.Fprintln(cli.out, "  percentage -id ID [-course CODE] - print attendance percentages of a student")
	fmt.Fprintln(cli.out, "  roster - print every student with their overall attendance")
	fmt.Fprintln(cli.out, "  report -id ID -out FILE.xlsx|FILE.csv - export the attendance calendar of a student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	if dataCommands[args[1]] {
		if err := cli.attSvc.EnsureCourses(ctx); err != nil {
			return errors.Wrap(err, "creating configured courses")
		}
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addstudent":
		cmd := cli.newFlagSet("addstudent")
		id := cmd.Int("id", 0, "The student's id (roll number).")
		name := cmd.String("name", "", "The student's full name.")
		semester := cmd.String("semester", "", "The student's semester.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == 0 || *name == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addStudent(ctx, student.NewStudent{ID: *id, Name: *name, Semester: *semester})

	case "importstudents":
		cmd := cli.newFlagSet("importstudents")
		file := cmd.String("file", "", "The roster CSV file.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *file == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.importStudents(ctx, *file)

	case "addcourse":
		cmd := cli.newFlagSet("addcourse")
		code := cmd.String("code", "", "The course code.")
		title := cmd.String("title", "", "The course title.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *code == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addCourse(ctx, attendance.NewCourse{Code: *code, Title: *title})

	case "enroll":
		cmd := cli.newFlagSet("enroll")
		course := cmd.String("course", "", "The course code.")
		ids := cmd.String("ids", "", "Comma separated student ids.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *course == "" || *ids == "" {
			cmd.Usage()
			return errHelp
		}
		studentIDs, err := parseIDs(*ids)
		if err != nil {
			return err
		}
		return cli.enroll(ctx, *course, studentIDs)

	case "mark":
		cmd := cli.newFlagSet("mark")
		course := cmd.String("course", "", "The course code.")
		key := cmd.String("key", "", "The session key: DD-MM-YYYY-HHMM.")
		present := cmd.String("present", "", "Comma separated ids of the present students.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *course == "" || *key == "" {
			cmd.Usage()
			return errHelp
		}
		sessKey, err := attendance.ParseSessionKey(*key)
		if err != nil {
			return err
		}
		presentIDs, err := parseIDs(*present)
		if err != nil {
			return err
		}
		return cli.mark(ctx, *course, sessKey, presentIDs)

	case "percentage":
		cmd := cli.newFlagSet("percentage")
		id := cmd.Int("id", 0, "The student's id.")
		course := cmd.String("course", "", "Only print the percentage of this course.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.percentage(ctx, *id, *course)

	case "roster":
		return cli.roster(ctx)

	case "report":
		cmd := cli.newFlagSet("report")
		id := cmd.Int("id", 0, "The student's id.")
		out := cmd.String("out", "", "The destination file (.xlsx or .csv).")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == 0 || *out == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.report(ctx, *id, *out)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	cmd := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	return cmd
}

// parseIDs parses a comma separated list of student ids. An empty list is valid.
func parseIDs(s string) ([]int, error) {
	ids := make([]int, 0)
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid student id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (cli *commandLine) addStudent(ctx context.Context, ns student.NewStudent) error {
	if err := ns.Validate(cli.validate, cli.stdSvc); err != nil {
		return err
	}
	std, err := cli.stdSvc.Create(ctx, ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "student %d (%s) added\n", std.ID, std.Name)
	return nil
}

func (cli *commandLine) importStudents(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return core.NewIOError(err, path)
	}
	defer func() { _ = f.Close() }()

	var rows []student.NewStudent
	if err = gocsv.UnmarshalFile(f, &rows); err != nil {
		return core.NewIOError(err, path)
	}
	students, err := cli.stdSvc.Import(ctx, cli.validate, rows)
	if err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			for _, fErr := range vErr.Fields {
				fmt.Fprintf(cli.out, "  %s: %s\n", fErr.Field, fErr.Error)
			}
		}
		return err
	}
	fmt.Fprintf(cli.out, "%d students imported\n", len(students))
	return nil
}

func (cli *commandLine) addCourse(ctx context.Context, nc attendance.NewCourse) error {
	course, err := cli.attSvc.CreateCourse(ctx, cli.validate, nc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "course %s added\n", course.Code)
	return nil
}

func (cli *commandLine) enroll(ctx context.Context, course string, ids []int) error {
	if err := cli.attSvc.Enroll(ctx, course, ids...); err != nil {
		return err
	}
	cols, err := cli.attSvc.CourseColumns(ctx, course)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d students enrolled\n", core.CleanCode(course), len(cols)-1)
	return nil
}

func (cli *commandLine) mark(ctx context.Context, course string, key attendance.SessionKey, present []int) error {
	sess, err := cli.attSvc.MarkAttendance(ctx, present, course, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s: %d/%d present\n", sess.Course, sess.Key, sess.PresentCount(), len(sess.Marks))
	return nil
}

func (cli *commandLine) percentage(ctx context.Context, id int, course string) error {
	if course != "" {
		pct, err := cli.attSvc.Percentage(ctx, id, course)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s: %.2f%%\n", core.CleanCode(course), pct)
		return nil
	}

	summary, err := cli.attSvc.Summary(ctx, id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%d\t%s\n", summary.Student.ID, summary.Student.Name)
	for _, st := range summary.Courses {
		fmt.Fprintf(w, "%s\t%d/%d\t%.2f%%\n", st.Course, st.Present, st.Sessions, st.Percentage)
	}
	fmt.Fprintf(w, "overall\t\t%.2f%%\n", summary.Overall)
	return w.Flush()
}

func (cli *commandLine) roster(ctx context.Context) error {
	entries, err := cli.attSvc.Roster(ctx, nil, nil)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSEMESTER\tOVERALL")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f%%\n", e.ID, e.Name, e.Semester, e.Overall)
	}
	return w.Flush()
}

func (cli *commandLine) report(ctx context.Context, id int, dest string) error {
	cal, err := cli.attSvc.Calendar(ctx, id)
	if err != nil {
		return err
	}
	if err = reportsvc.Export(cal, dest); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "report of student %d written to %s (%d days)\n", id, dest, len(cal.Rows))
	return nil
}
