// Package model defines the canonical data types shared by the parser,
// index, cache, and search components.
package model

import (
	"strings"
	"time"
)

// Role identifies the kind of a conversation message.
type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
	RoleSummary   Role = "Summary"
	RoleSystem    Role = "System"
)

// ShortName returns the compact display name used by the CLI
// (User, AI, Sum, Sys).
func (r Role) ShortName() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "AI"
	case RoleSummary:
		return "Sum"
	case RoleSystem:
		return "Sys"
	default:
		return "?"
	}
}

// MessageRecord is the normalized, indexable unit produced by the parser
// and consumed by the index writer and search engine.
type MessageRecord struct {
	UUID string
	ParentUUID  string
	SessionID   string
	// Project is the derived display name (§4.C "project naming"),
	// indexed as the "project" field and matched by --project filters.
	Project string
	// ProjectPath is the raw working directory (cwd) the conversation
	// occurred in, indexed as "project_path (cwd)". May be empty.
	ProjectPath string
	Timestamp   time.Time
	Role        Role
	Content     string
	Model       string
	SequenceNum uint64
	IsSidechain bool
	AgentID     string

	Technologies   []string
	CodeLanguages  []string
	ToolsMentioned []string
	HasCode        bool
	HasError       bool
}

// IsDisplayable reports whether a record should surface in user-facing
// output: it must be a User, Assistant, or Summary message, and its
// content must not be the literal string "Warmup".
func (m *MessageRecord) IsDisplayable() bool {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSummary:
	default:
		return false
	}
	return strings.TrimSpace(m.Content) != "Warmup"
}
