package models

// Row tags mirror column names because change-feed payloads carry rows
// serialized by the database (row_to_json), not by this module.

// MemberRole defines a member's role inside a group
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Table names shared by the stores and the change feed
const (
	TableGroups                 = "groups"
	TableGroupChallenges        = "group_challenges"
	TableGroupMembers           = "group_members"
	TableProfiles               = "profiles"
	TableProgressLogs           = "progress_logs"
	TableDailyFirstFinishers    = "daily_first_finishers"
	TableScheduledNotifications = "scheduled_notifications"
)
