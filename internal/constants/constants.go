// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "fetchpay.db"
	DefaultDownloadsDir = "downloads"
	DefaultWorkerCount  = 1
	DefaultPollInterval = 1 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DeliveryHTTPTimeout = 60 * time.Minute
	DefaultRetryCount   = 3
	DefaultRetryBase    = 1 * time.Second
	DefaultRateLimitRPM = 10
	DefaultHistoryLimit = 20
)

// Credit and pricing defaults
const (
	DefaultStartingBalance = 10
	CreditPriceUSD         = 0.01
)

// Artifact limits
const (
	// MaxArtifactBytes is the Telegram-class transport ceiling for deliverable files.
	MaxArtifactBytes = int64(2) * 1024 * 1024 * 1024

	// MaxErrorMessageLen caps user-facing failure text so a single error
	// cannot flood the delivery channel.
	MaxErrorMessageLen = 400
)

// File Extensions
const (
	ExtMP3 = ".mp3"
	ExtMP4 = ".mp4"
	ExtM4A = ".m4a"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Database
const (
	AccountsTable = "accounts"
	JobsTable     = "jobs"
	InvoicesTable = "invoices"
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
