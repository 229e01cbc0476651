package dto

// NoteMetadata carries the course and text fields shared by uploads, drafts and edits.
type NoteMetadata struct {
	CourseCode  string `json:"courseCode" form:"courseCode" validate:"required"`
	CourseTitle string `json:"courseTitle" form:"courseTitle" validate:"required"`
	Semester    string `json:"semester" form:"semester" validate:"required"`
	Type        string `json:"type" form:"type" validate:"required,oneof=PDF IMG"`
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
}

// FileUpload is an attachment received from a client.
type FileUpload struct {
	Name    string
	Content []byte
}

// NoteListQuery binds the public note filters.
type NoteListQuery struct {
	Faculty  string `form:"faculty"`
	Prodi    string `form:"prodi"`
	Semester string `form:"semester"`
	Type     string `form:"type"`
	Query    string `form:"q"`
}

// AdminPostQuery binds the admin post listing filters.
type AdminPostQuery struct {
	Search  string `form:"q"`
	Faculty string `form:"faculty"`
}

// AdminUserQuery binds the admin user listing filters.
type AdminUserQuery struct {
	Search string `form:"q"`
	Role   string `form:"role" validate:"omitempty,oneof=user admin"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format  string `form:"format" validate:"omitempty,oneof=csv pdf"`
	Search  string `form:"q"`
	Faculty string `form:"faculty"`
}
