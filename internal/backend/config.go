package backend

import (
	"fmt"

	"portfel/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	credsFile := appConfig.GoogleServiceAccountFile
	if credsFile == "" {
		credsFile = appConfig.GoogleApplicationCredentials
	}

	return Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DefaultsFile: appConfig.DefaultsFile,

		SecretKey:  appConfig.SecretKey,
		BaseURL:    appConfig.BaseURL,
		SessionTTL: appConfig.SessionTTL,

		AMQPURL:         appConfig.AMQPURL,
		AMQPExchange:    appConfig.AMQPExchange,
		AMQPMailQueue:   appConfig.AMQPMailQueue,
		AMQPExportQueue: appConfig.AMQPExportQueue,

		SMTPAddr:     appConfig.SMTPAddr,
		SMTPUsername: appConfig.SMTPUsername,
		SMTPPassword: appConfig.SMTPPassword,
		MailFrom:     appConfig.MailFrom,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: credsFile,

		ExportInterval: appConfig.ExportInterval,
	}, nil
}

// Validate checks the settings the factory cannot default.
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.RequireAMQP && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required")
	}
	if c.SMTPAddr != "" && c.MailFrom == "" {
		return fmt.Errorf("mail sender is required when SMTP is configured")
	}
	return nil
}
