package main

import (
	"context"
	"log"

	_ "time/tzdata" // calendar_timezone must resolve on hosts without a zoneinfo database

	"github.com/dalemusser/sevadesk/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
