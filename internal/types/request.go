package types

// RequestType classifies an outbound API request for logging and error context
type RequestType string

const (
	RequestTypeGetByID     RequestType = "get_by_id"
	RequestTypeDownload    RequestType = "download"
	RequestTypeSheetValues RequestType = "sheet_values"
)

// Google service names used when classifying API errors
const (
	ServiceDrive  = "drive"
	ServiceSheets = "sheets"
)

// RequestContext carries tracing information through a chain of API calls
type RequestContext struct {
	Profile         string      `json:"profile"`
	Service         string      `json:"service"`
	InvolvedFileIDs []string    `json:"involvedFileIds"`
	RequestType     RequestType `json:"requestType"`
	TraceID         string      `json:"traceId"`
}
