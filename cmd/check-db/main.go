// Package main is a diagnostic that connects with the server configuration,
// walks every registered organization and reports trips whose active
// participants exceed their effective maximum. It exits non-zero when the
// database is unreachable, a namespace cannot be opened or any trip is
// overbooked, so it can gate deployments or run as a scheduled check.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/divestreams/booking-core/internal/booking"
	"github.com/divestreams/booking-core/internal/config"
	"github.com/divestreams/booking-core/internal/db"
	"github.com/divestreams/booking-core/internal/db/repositories"
	"github.com/divestreams/booking-core/internal/tenant"
)

const pageSize = 100

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), db.PoolOptions{MaxConnections: 2, MinIdleConnections: 1})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	orgs := repositories.NewOrganizationRepository(database)
	resolver, err := tenant.NewResolver(database, orgs, tenant.ResolverOptions{
		StatementTimeout: cfg.Booking.StatementTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create resolver: %v", err)
	}

	ctx := context.Background()
	failed := false
	for offset := 0; ; offset += pageSize {
		page, err := orgs.List(ctx, pageSize, offset)
		if err != nil {
			log.Fatalf("Failed to list organizations: %v", err)
		}

		for _, org := range page {
			err := resolver.WithSession(ctx, org.ID, func(sess *tenant.Session) error {
				trips, err := repositories.NewTripRepository(sess.Conn(), sess.Namespace(), booking.InactiveStatuses()).Overbooked(ctx)
				if err != nil {
					return err
				}
				if len(trips) == 0 {
					fmt.Printf("OK    %s (%s)\n", org.Name, sess.Namespace())
					return nil
				}
				failed = true
				for _, t := range trips {
					fmt.Printf("OVER  %s trip %s on %s: %d booked, max %d\n",
						org.Name, t.ID, t.Date.Format("2006-01-02"), t.BookedParticipants, t.EffectiveMax)
				}
				return nil
			})
			if err != nil {
				failed = true
				log.Printf("Warning: %s: %v", org.Name, err)
			}
		}

		if len(page) < pageSize {
			break
		}
	}

	if failed {
		os.Exit(1)
	}
}
