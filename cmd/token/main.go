// Command token issues a signed access token for local testing.
//
//	go run ./cmd/token -sub P1001 -role PASSENGER
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/rail-booking/internal/config"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "", "token subject (passenger id for PASSENGER tokens)")
	role := flag.String("role", string(model.RolePassenger), "PASSENGER or EMPLOYEE")
	ttl := flag.Duration("ttl", config.TokenTTL(), "token lifetime (defaults to ACCESS_TOKEN_TTL_MIN)")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	flag.Parse()

	r := model.Role(strings.ToUpper(*role))
	if !r.Valid() {
		log.Fatalf("invalid role %q", *role)
	}
	if *sub == "" || *secret == "" {
		flag.Usage()
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(*secret, *sub, r, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
