package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ariebrainware/patient-portal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventLogout             SecurityEventType = "LOGOUT"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"
	EventUpstreamFailure    SecurityEventType = "UPSTREAM_FAILURE"
	EventAnalysisCompleted  SecurityEventType = "ANALYSIS_COMPLETED"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	RequestID string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

// LoginParams carries the request facts shared by login and logout events.
type LoginParams struct {
	RequestID string
	Email     string
	IP        string
	UserAgent string
	Reason    string
}

type UnauthorizedAccessParams struct {
	RequestID string
	Email     string
	IP        string
	Resource  string
	Reason    string
}

type RateLimitParams struct {
	Email    string
	IP       string
	Endpoint string
}

// UpstreamFailureParams describes a failed call to the data or inference service.
type UpstreamFailureParams struct {
	RequestID string
	Email     string
	IP        string
	Service   string
	Operation string
	Err       error
}

type AnalysisParams struct {
	RequestID      string
	Email          string
	IP             string
	AnalysisID     string
	AnemiaDetected bool
	Detections     int
}

var securityLogger *log.Logger
var securityDB *gorm.DB

// SetSecurityLoggerDB sets a gorm DB instance used by the security logger.
// Call this during application startup (e.g. in main) after DB initialization.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityDB = db
}

func init() {
	securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(value)
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogSecurityEvent writes the event to the security log and, when a DB is
// configured, persists it. Persistence failures never reach the caller.
func LogSecurityEvent(event SecurityEvent) {
	msg := fmt.Sprintf("Event=%s RequestID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.RequestID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)
	// Details are only counted here; their values go to the DB as JSON.
	if len(event.Details) > 0 {
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}
	securityLogger.Println(msg)

	if securityDB == nil {
		return
	}
	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}
	entry := model.SecurityLog{
		EventType: string(event.EventType),
		RequestID: sanitizeLogValue(event.RequestID),
		Email:     sanitizeLogValue(event.Email),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(GetIPLocation(event.IP).String()),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := securityDB.Create(&entry).Error; err != nil {
		securityLogger.Printf("Failed to persist security event: %v", err)
	}
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		RequestID: p.RequestID,
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		RequestID: p.RequestID,
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   fmt.Sprintf("Login failed: %s", p.Reason),
	})
}

// LogLogout logs a logout event
func LogLogout(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		RequestID: p.RequestID,
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged out",
	})
}

func LogUnauthorizedAccess(p UnauthorizedAccessParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		RequestID: p.RequestID,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", p.Resource, p.Reason),
	})
}

func LogRateLimitExceeded(p RateLimitParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", p.Endpoint),
	})
}

// LogUpstreamFailure records a failed call to a remote service.
func LogUpstreamFailure(p UpstreamFailureParams) {
	reason := "unknown error"
	if p.Err != nil {
		reason = p.Err.Error()
	}
	LogSecurityEvent(SecurityEvent{
		EventType: EventUpstreamFailure,
		RequestID: p.RequestID,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("%s %s failed: %s", p.Service, p.Operation, reason),
		Details: map[string]interface{}{
			"service":   p.Service,
			"operation": p.Operation,
		},
	})
}

func LogAnalysisCompleted(p AnalysisParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAnalysisCompleted,
		RequestID: p.RequestID,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Anemia analysis %s completed", p.AnalysisID),
		Details: map[string]interface{}{
			"analysis_id":     p.AnalysisID,
			"anemia_detected": p.AnemiaDetected,
			"detections":      p.Detections,
		},
	})
}

// GetSecurityLoggerForTest returns the current security logger for testing purposes
func GetSecurityLoggerForTest() *log.Logger {
	return securityLogger
}

// SetSecurityLoggerForTest sets a custom logger for testing purposes
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityLogger = logger
}
