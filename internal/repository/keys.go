package repository

// Storage keys. Each holds one JSON document.
const (
	KeyNotes         = "uninotes_all_posts"
	KeyUsers         = "uninotes_users"
	KeyAdminLogs     = "uninotes_admin_logs"
	KeySession       = "uninotes_user"
	KeyQuarantine    = "uninotes_quarantine"
	KeySchemaVersion = "uninotes_schema_version"

	// Superseded by KeyNotes; read only by the legacy-key migration.
	KeyLegacyUploadedNotes = "uninotes_uploaded_notes"
	KeyLegacyUserUploads   = "uninotes_user_uploads"
)
