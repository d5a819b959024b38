// Command admintoken prints an admin JWT accepted by the /reset and /update
// routes and by gRPC reflection. The secret comes from -secret or
// ADMIN_TOKEN_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/patric-chuzhbe/twitoff/internal/auth"
)

func main() {
	secret := flag.String("secret", os.Getenv("ADMIN_TOKEN_SECRET"), "HS256 signing secret")
	subject := flag.String("sub", "admin", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime, 0 never expires")
	flag.Parse()

	token, err := auth.New(*secret).BuildToken(*subject, *ttl)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(token)
}
