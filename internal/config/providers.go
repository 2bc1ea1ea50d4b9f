package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/diboas/diboas-go/internal/bank"
	"github.com/diboas/diboas-go/internal/export"
)

// LoadBankConfig loads Plaid configuration with this precedence:
//  1. Viper configuration (config file or DIBOAS_ env vars)
//  2. Direct PLAID_* environment variables
func LoadBankConfig() (*bank.Config, error) {
	config := bank.Config{
		ClientID:    viper.GetString("bank.client_id"),
		Secret:      viper.GetString("bank.secret"),
		Environment: viper.GetString("bank.environment"),
	}

	if config.ClientID == "" {
		config.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("PLAID_SECRET")
	}
	if config.Environment == "" {
		config.Environment = os.Getenv("PLAID_ENV")
	}
	if config.Environment == "" {
		config.Environment = "sandbox"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadExportConfig loads Google Sheets configuration with this precedence:
//  1. Viper configuration (config file or DIBOAS_ env vars)
//  2. Direct GOOGLE_SHEETS_* environment variables
func LoadExportConfig() (*export.Config, error) {
	config := export.DefaultConfig()

	if v := viper.GetString("export.service_account_path"); v != "" {
		config.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("export.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("export.client_secret"); v != "" {
		config.ClientSecret = v
	}
	if v := viper.GetString("export.refresh_token"); v != "" {
		config.RefreshToken = v
	}
	if v := viper.GetString("export.spreadsheet_id"); v != "" {
		config.SpreadsheetID = v
	}
	if v := viper.GetString("export.spreadsheet_name"); v != "" {
		config.SpreadsheetName = v
	}

	if config.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
			config.ServiceAccountPath = ExpandPath(v)
		}
	}
	if config.ClientID == "" {
		config.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if config.RefreshToken == "" {
		config.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if config.SpreadsheetID == "" {
		config.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
