package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string

	MailProvider     string
	MailSender       string
	MailSearchTerm   string
	MailDaysBack     int
	MailMaxResults   int
	AttachmentFilter string

	DriveFolderID string

	SpreadsheetID string
	SheetRange    string
	LogSheetRange string
	SheetDaysBack int
	MaxFiles      int

	ExtractBaseURL   string
	ExtractAPIKey    string
	ExtractAgent     string
	ExtractTimeoutMs int

	ExtractMaxAttempts int
	ExtractBackoffSec  int
	AppendMaxAttempts  int
	AppendBackoffSec   int

	NotifyRecipients []string
	NotifySender     string

	ScheduleSpec string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "grnflow.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),

		MailProvider:     getEnv("MAIL_PROVIDER", "gmail"),
		MailSender:       getEnv("MAIL_SENDER", ""),
		MailSearchTerm:   getEnv("MAIL_SEARCH_TERM", "grn"),
		MailDaysBack:     getEnvInt("MAIL_DAYS_BACK", 3),
		MailMaxResults:   getEnvInt("MAIL_MAX_RESULTS", 1000),
		AttachmentFilter: getEnv("ATTACHMENT_FILTER", ""),

		DriveFolderID: getEnv("DRIVE_FOLDER_ID", ""),

		SpreadsheetID: getEnv("SPREADSHEET_ID", ""),
		SheetRange:    getEnv("SHEET_RANGE", "grn"),
		LogSheetRange: getEnv("LOG_SHEET_RANGE", "workflow_logs"),
		SheetDaysBack: getEnvInt("SHEET_DAYS_BACK", 3),
		MaxFiles:      getEnvInt("MAX_FILES", 1000),

		ExtractBaseURL:   getEnv("EXTRACT_API_BASE_URL", "https://api.cloud.llamaindex.ai/api/v1"),
		ExtractAPIKey:    getEnv("EXTRACT_API_KEY", ""),
		ExtractAgent:     getEnv("EXTRACT_AGENT", ""),
		ExtractTimeoutMs: getEnvInt("EXTRACT_TIMEOUT_MS", 120000),

		ExtractMaxAttempts: getEnvInt("EXTRACT_MAX_ATTEMPTS", 3),
		ExtractBackoffSec:  getEnvInt("EXTRACT_BACKOFF_SEC", 2),
		AppendMaxAttempts:  getEnvInt("APPEND_MAX_ATTEMPTS", 3),
		AppendBackoffSec:   getEnvInt("APPEND_BACKOFF_SEC", 2),

		NotifyRecipients: getEnvList("NOTIFY_RECIPIENTS"),
		NotifySender:     getEnv("NOTIFY_SENDER", ""),

		ScheduleSpec: getEnv("SCHEDULE_SPEC", "0 */3 * * *"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// SheetName strips an A1-notation suffix, e.g. "grn!A1:Z" -> "grn".
func (c Config) SheetName() string {
	return sheetName(c.SheetRange)
}

// LogSheetName is SheetName for the workflow log tab.
func (c Config) LogSheetName() string {
	return sheetName(c.LogSheetRange)
}

func sheetName(r string) string {
	if idx := strings.Index(r, "!"); idx >= 0 {
		return r[:idx]
	}
	return r
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
