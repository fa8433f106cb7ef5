package utils

// OAuth scopes
const (
	ScopeDriveReadonly  = "https://www.googleapis.com/auth/drive.readonly"
	ScopeSheetsReadonly = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// ScopesMirror is everything the mirror needs: read sheets, read Drive blobs
var ScopesMirror = []string{
	ScopeDriveReadonly,
	ScopeSheetsReadonly,
}

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Sheet defaults
const (
	DefaultSheetRange        = "Sheet1!A:D"
	DefaultRecordsRange      = "Sheet2!A1:Z1000"
	DefaultRecordsCollection = "Sheet2Collection"
)

// Scheduling and transport defaults
const (
	DefaultPollIntervalSeconds = 300
	DefaultFTPPort             = 21
	DefaultFTPTimeoutSeconds   = 30
	DefaultHealthAddr          = ":3000"
	DefaultConcurrency         = 1
	MaxConcurrency             = 8
)

// BackupMarker is inserted before the extension of a file being replaced
const BackupMarker = "(m)"

// Drive field mask for descriptor resolution
const DescriptorFields = "id,name,mimeType,size,md5Checksum"

// Schema version
const SchemaVersion = "1.0"

// KeyringService is the OS keyring service name used for stored secrets
const KeyringService = "sheetmirror"
