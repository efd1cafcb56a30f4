package event

type Type string

const (
	TypeFileRegistered   Type = "file.registered"
	TypeFileUpdated      Type = "file.updated"
	TypeFileDeleted      Type = "file.deleted"
	TypeAccessGranted    Type = "access.granted"
	TypeAccessRevoked    Type = "access.revoked"
	TypeTransferInitiate Type = "transfer.initiated"
	TypeTransferAccepted Type = "transfer.accepted"
	TypeTransferRejected Type = "transfer.rejected"
	TypeTransferCancel   Type = "transfer.cancelled"
	TypeTransferComplete Type = "transfer.completed"
	TypeTransferDisputed Type = "transfer.disputed"
	TypeTransferResolved Type = "transfer.resolved"
	TypeAuditRecorded    Type = "audit.recorded"
	TypeSettingsChanged  Type = "settings.changed"
	TypeRoleChanged      Type = "role.changed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
