package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/student"
	logsvc "github.com/trezcool/hazira/services/logger"
	"github.com/trezcool/hazira/storage/database"
	sqlxrepos "github.com/trezcool/hazira/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	tt, err := attendance.TimetableFromConfig(conf.Timetable)
	if err != nil {
		logger.Fatal("loading timetable", err)
	}

	// set up DB
	db, err := database.Connect(conf)
	if err != nil {
		logger.Fatal("connecting to database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), stdSvc, attendance.Options{
		Timetable:      tt,
		Courses:        conf.Courses,
		StrictCalendar: conf.StrictCalendar,
		Logger:         logger,
	})

	// start CLI
	cli := commandLine{
		db:       db.DB,
		engine:   conf.Database.Engine,
		stdSvc:   stdSvc,
		attSvc:   attSvc,
		validate: validate,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
