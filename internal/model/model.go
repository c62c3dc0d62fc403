package model

import (
	"context"
	"time"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TestCase is one fixed case reported by the execution service.
// Mismatch is the actual value shown when the case fails.
type TestCase struct {
	Input    string `json:"input" yaml:"input"`
	Expected string `json:"expected" yaml:"expected"`
	Mismatch string `json:"mismatch" yaml:"mismatch"`
}

// ExamQuestion represents a coding exam question.
type ExamQuestion struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	Points      int        `json:"points" yaml:"points"`
	StarterCode string     `json:"starter_code" yaml:"starter_code"`
	TestCases   []TestCase `json:"test_cases" yaml:"test_cases"`
}

// ExecutionStatus represents the state of an execution attempt.
type ExecutionStatus string

const (
	StatusIdle      ExecutionStatus = "idle"
	StatusRunning   ExecutionStatus = "running"
	StatusSucceeded ExecutionStatus = "succeeded"
	StatusFailed    ExecutionStatus = "failed"
)

// Attempt is one Run-to-terminal-state cycle.
type Attempt struct {
	ID         string          `json:"id"`
	Status     ExecutionStatus `json:"status"`
	Report     string          `json:"report"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// IntegrityKind identifies a simulated proctoring signal.
type IntegrityKind string

const (
	IntegrityGaze  IntegrityKind = "gaze"
	IntegrityNoise IntegrityKind = "noise"
	IntegrityFace  IntegrityKind = "face"
)

// IntegrityEvent is an immutable proctoring signal.
type IntegrityEvent struct {
	Kind        IntegrityKind `json:"kind"`
	Description string        `json:"description"`
	At          time.Time     `json:"at"`
}

// NotificationKind is the severity of a transient notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
)

// Notification is a short-lived message shown to the candidate.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Theme is the workspace color scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// SessionPreferences holds per-session display settings. They are never
// persisted and reset on every session entry.
type SessionPreferences struct {
	Theme Theme `json:"theme"`
}

// DefaultPreferences returns the preferences a new session starts with.
func DefaultPreferences() SessionPreferences {
	return SessionPreferences{Theme: ThemeDark}
}

// UserRole represents a user's role in the platform.
type UserRole string

const (
	RoleStudent    UserRole = "STUDENT"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleAdmin      UserRole = "ADMIN"
)

// UserStatus represents whether an account may sign in.
type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
)

// User represents a directory user.
type User struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Email     string     `json:"email" yaml:"email"`
	Role      UserRole   `json:"role" yaml:"role"`
	Avatar    string     `json:"avatar" yaml:"avatar"`
	Status    UserStatus `json:"status" yaml:"status"`
	LastLogin time.Time  `json:"last_login" yaml:"last_login"`
}

// ServiceStatus is the health of a platform microservice.
type ServiceStatus string

const (
	ServiceHealthy  ServiceStatus = "HEALTHY"
	ServiceDegraded ServiceStatus = "DEGRADED"
	ServiceDown     ServiceStatus = "DOWN"
)

// ServiceType groups microservices by responsibility.
type ServiceType string

const (
	ServiceCore       ServiceType = "CORE"
	ServiceAssessment ServiceType = "ASSESSMENT"
	ServiceCompute    ServiceType = "COMPUTE"
	ServiceSupport    ServiceType = "SUPPORT"
)

// Microservice is one health record of the platform feed.
type Microservice struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Status      ServiceStatus `json:"status" yaml:"status"`
	LatencyMS   float64       `json:"latency_ms" yaml:"latency_ms"`
	LoadPercent float64       `json:"load_percent" yaml:"load_percent"`
	Type        ServiceType   `json:"type" yaml:"type"`
}

// Snapshot is a read-only view of an exam session for display.
type Snapshot struct {
	SessionID         string           `json:"session_id"`
	Course            string           `json:"course"`
	User              User             `json:"user"`
	Question          ExamQuestion     `json:"question"`
	Answer            string           `json:"answer"`
	Status            ExecutionStatus  `json:"status"`
	Report            string           `json:"report"`
	LastSaved         *time.Time       `json:"last_saved,omitempty"`
	IntegrityLog      []IntegrityEvent `json:"integrity_log"`
	ProctoringActive  bool             `json:"proctoring_active"`
	ProctoringPending bool             `json:"proctoring_pending"`
	Remaining         time.Duration    `json:"remaining"`
	TimeUp            bool             `json:"time_up"`
	Theme             Theme            `json:"theme"`
	Submitted         bool             `json:"submitted"`
}

// Submission is a final answer handed in by a candidate.
type Submission struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	QuestionID  string          `json:"question_id"`
	Text        string          `json:"text"`
	Digest      string          `json:"digest"`
	Status      ExecutionStatus `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	Course      string        // Shown in the workspace header
	TimeLimit   time.Duration // Countdown start; 0 disables the countdown
	FlushOnExit bool          // Save the live answer when the session exits
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the signed-in user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
