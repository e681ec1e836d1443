package boot

import (
	"arena/src/checkout"
	"arena/src/db"
	"arena/src/lib"
	"arena/src/models"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()
	if err := models.Migrate(db); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	return db
}

// InitScheduler starts the sweeper that cancels bookings whose hold ran out.
func InitScheduler(svc *checkout.Service, interval time.Duration) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	if _, err := lib.CreateIntervalJob("expire-stale-holds", interval, svc.Sweep); err != nil {
		log.Printf("Error creating hold sweeper: %s\n", err.Error())
		return
	}
	sched.Start()
	log.Println("Jobs in queue:", len(sched.Jobs()))
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error stopping scheduler: %s\n", err.Error())
	}
}
