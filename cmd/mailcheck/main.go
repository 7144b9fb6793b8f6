// cmd/mailcheck sends one message through the configured email provider
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func main() {
	to := flag.String("to", "", "recipient address")
	timeout := flag.Duration("timeout", 30*time.Second, "delivery timeout")
	flag.Parse()

	if *to == "" {
		fmt.Fprintln(os.Stderr, "Usage: mailcheck -to <address> [-timeout 30s]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.New(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mailer := email.NewEmailService(cfg, log)
	err = mailer.SendEmail(ctx, &email.Email{
		To:          []string{*to},
		Subject:     cfg.App.Name + " mail check",
		HTMLContent: "<p>Outgoing mail is configured correctly.</p>",
		Type:        email.EmailType("mail_check"),
	})
	if err != nil {
		log.WithError(err).WithField("provider", cfg.Email.Provider).Fatal("Mail check failed")
	}

	log.WithFields(logrus.Fields{"provider": cfg.Email.Provider, "to": *to}).Info("Mail check sent")
}
