package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/hazira/apps/api/echo"
	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/identity"
	"github.com/trezcool/hazira/core/student"
	logsvc "github.com/trezcool/hazira/services/logger"
	"github.com/trezcool/hazira/storage/database"
	sqlxrepos "github.com/trezcool/hazira/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	tt, err := attendance.TimetableFromConfig(conf.Timetable)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading timetable: %v", err), err)
	}

	// set up DB
	db, err := database.Setup(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), stdSvc, attendance.Options{
		Timetable:      tt,
		Courses:        conf.Courses,
		StrictCalendar: conf.StrictCalendar,
		Logger:         dbLogger,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err = attSvc.EnsureCourses(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("creating configured courses: %v", err), err)
	}

	var gallery *identity.Gallery
	if conf.Identity.EncodingsDir != "" {
		gallery, err = identity.LoadGallery(conf.Identity.EncodingsDir)
		if err != nil {
			// recognition stays off; manual marking still works
			logger.Warn(fmt.Sprintf("loading face encodings: %v", err), map[string]interface{}{"dir": conf.Identity.EncodingsDir})
			gallery = nil
		} else {
			logger.Info(fmt.Sprintf("%d face encodings loaded", gallery.Len()))
		}
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			StudentSvc:    stdSvc,
			AttendanceSvc: attSvc,
			Gallery:       gallery,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
