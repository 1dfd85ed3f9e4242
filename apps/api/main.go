package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/akademyx/admissions/apps/api/echo"
	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/analytics"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/course"
	"github.com/akademyx/admissions/core/partner"
	"github.com/akademyx/admissions/core/payment"
	"github.com/akademyx/admissions/core/user"
	emailsvc "github.com/akademyx/admissions/services/email"
	logsvc "github.com/akademyx/admissions/services/logger"
	"github.com/akademyx/admissions/storage/database"
	sqlxrepos "github.com/akademyx/admissions/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	runner := database.NewTxRunner(db)
	appRepo := sqlxrepos.NewApplicationRepository(db)
	pmtRepo := sqlxrepos.NewPaymentRepository(db)
	ptnRepo := sqlxrepos.NewPartnerRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	usrRepo := sqlxrepos.NewUserRepository(db)

	appSvc := application.NewService(runner, appRepo, ptnRepo, mailSvc, conf, validate)
	pmtSvc := payment.NewService(runner, pmtRepo, appRepo, ptnRepo, mailSvc, validate)
	ptnSvc := partner.NewService(runner, ptnRepo, mailSvc, validate)
	crsSvc := course.NewService(crsRepo, validate)
	anlSvc := analytics.NewService(appRepo, ptnRepo)
	usrSvc := user.NewService(usrRepo)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(
		conf.Server.Address(),
		&echoapi.Deps{
			Conf:           conf,
			Logger:         logger,
			ApplicationSvc: appSvc,
			PaymentSvc:     pmtSvc,
			PartnerSvc:     ptnSvc,
			CourseSvc:      crsSvc,
			AnalyticsSvc:   anlSvc,
			UserSvc:        usrSvc,
			Validate:       validate,
			Translator:     translator,
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

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
