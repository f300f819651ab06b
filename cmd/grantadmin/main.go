// Command grantadmin grants or revokes administrator rights for an
// existing user.  No HTTP endpoint offers this.
//
//	grantadmin -email alice@example.com
//	grantadmin -email alice@example.com -revoke
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

func main() {
	email := flag.String("email", "", "email of the user to change")
	revoke := flag.Bool("revoke", false, "remove admin rights instead of granting them")
	flag.Parse()
	if *email == "" {
		flag.Usage()
		log.Fatal("grantadmin: -email is required")
	}

	cfg := config.LoadDB()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("grantadmin: database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepo(db)
	if err := users.SetAdmin(ctx, *email, !*revoke); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Fatalf("grantadmin: no user with email %q", *email)
		}
		log.Fatalf("grantadmin: %v", err)
	}
	if *revoke {
		log.Printf("admin rights revoked for %s; existing access tokens stay valid until they expire", *email)
		return
	}
	log.Printf("admin rights granted to %s; they apply from the next login or token refresh", *email)
}
