// cmd/hashpw prints a bcrypt hash for seeding admin accounts
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

func main() {
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: hashpw [-cost N] <password>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	password := flag.Arg(0)

	passwords := auth.NewPasswordManager(&config.Config{
		Security: config.SecurityConfig{BcryptCost: *cost},
	})

	hash, err := passwords.HashPassword(password)
	if err != nil {
		logrus.WithError(err).Fatal("Password rejected")
	}

	if err := passwords.VerifyPassword(password, hash); err != nil {
		logrus.WithError(err).Fatal("Hash verification failed")
	}

	fmt.Println(hash)
}
