package model

import "time"

// AuditEntry は特権操作1件の監査記録を表す。作成後は不変。
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"userId"`
	GuildID   string    `json:"guildId"`
	Action    string    `json:"action"`
}
