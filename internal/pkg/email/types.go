// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypePasswordReset     EmailType = "password_reset"
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeOrderStatusUpdate EmailType = "order_status_update"
	EmailTypeAccountBanned     EmailType = "account_banned"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string
	SiteURL   string
	UserName  string
	UserEmail string
	Year      int
}

// PasswordResetData contains data for password reset email
type PasswordResetData struct {
	EmailTemplateData
	ResetURL   string
	ExpiryTime string
}

// OrderConfirmationData contains data for order confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber       string
	OrderTotal        string
	EstimatedDelivery string
	OrderURL          string
	Items             []OrderItem
}

// OrderItem is one line in a confirmation email
type OrderItem struct {
	Name     string
	Quantity int
	Price    string
}

// OrderStatusUpdateData contains data for order status updates
type OrderStatusUpdateData struct {
	EmailTemplateData
	OrderNumber string
	Status      string
	OrderURL    string
}

// AccountBannedData contains data for ban notices
type AccountBannedData struct {
	EmailTemplateData
	Reason string
}

func baseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
