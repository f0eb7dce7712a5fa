package main

import (
	"log"
	"os"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	logsvc "github.com/KhanhMinhDz/CourseHub-Project/services/logger"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database/sqlxrepos"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/files"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	store, err := files.NewLocalStore(conf)
	if err != nil {
		logger.Fatal("opening file store", err)
	}

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
		classSvc: classroom.NewService(
			sqlxrepos.NewClassRoomRepository(db), database.NewTxRunner(db), usersByID{usrRepo},
			sqlxrepos.NewAssignmentRepository(db), store, logger,
		),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
