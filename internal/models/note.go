package models

import "time"

// FileType enumerates supported attachments.
type FileType string

const (
	FileTypePDF FileType = "PDF"
	FileTypeIMG FileType = "IMG"
)

// UploadStatus tracks whether a note has its file attached yet.
type UploadStatus string

const (
	UploadComplete UploadStatus = "complete"
	UploadPending  UploadStatus = "pending"
)

// Note is a study-material post. Field names mirror the stored JSON document.
type Note struct {
	ID           string       `json:"id"`
	CourseCode   string       `json:"courseCode"`
	CourseTitle  string       `json:"courseTitle"`
	Faculty      string       `json:"faculty"`
	Prodi        string       `json:"prodi"`
	Semester     string       `json:"semester"`
	Type         FileType     `json:"type,omitempty"`
	FileType     FileType     `json:"fileType,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	FileName     string       `json:"fileName"`
	FileSize     string       `json:"fileSize"`
	FileData     string       `json:"fileData,omitempty"`
	Author       string       `json:"author"`
	UploadedBy   string       `json:"uploadedBy"`
	CreatedAt    string       `json:"createdAt,omitempty"`
	UploadDate   string       `json:"uploadDate,omitempty"`
	UploadStatus UploadStatus `json:"uploadStatus,omitempty"`
}

// HasFile reports whether the note carries its file content.
func (n Note) HasFile() bool {
	return n.FileData != ""
}

// Kind returns the note's file type, preferring fileType over the legacy type field.
func (n Note) Kind() FileType {
	if n.FileType != "" {
		return n.FileType
	}
	if n.Type != "" {
		return n.Type
	}
	return FileTypePDF
}

// Created parses createdAt, falling back to uploadDate. Unparseable values yield the zero time.
func (n Note) Created() time.Time {
	for _, raw := range []string{n.CreatedAt, n.UploadDate} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// NotePatch lists the fields Update may overwrite. Nil fields are left unchanged.
// It has no id or createdAt so those can never move.
type NotePatch struct {
	CourseCode   *string
	CourseTitle  *string
	Semester     *string
	Type         *FileType
	Title        *string
	Description  *string
	FileName     *string
	FileSize     *string
	FileData     *string
	UploadStatus *UploadStatus
}

// Apply merges the patch over n.
func (p NotePatch) Apply(n *Note) {
	if p.CourseCode != nil {
		n.CourseCode = *p.CourseCode
	}
	if p.CourseTitle != nil {
		n.CourseTitle = *p.CourseTitle
	}
	if p.Semester != nil {
		n.Semester = *p.Semester
	}
	if p.Type != nil {
		n.Type = *p.Type
		n.FileType = *p.Type
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.FileName != nil {
		n.FileName = *p.FileName
	}
	if p.FileSize != nil {
		n.FileSize = *p.FileSize
	}
	if p.FileData != nil {
		n.FileData = *p.FileData
	}
	if p.UploadStatus != nil {
		n.UploadStatus = *p.UploadStatus
	}
}

// NoteFilter narrows note listings. Empty fields and Type "ALL" impose no constraint.
type NoteFilter struct {
	Faculty     string
	Prodi       string
	Semester    string
	Type        string
	SearchQuery string
}

// AdminPostFilter narrows the admin post listing.
type AdminPostFilter struct {
	Search  string
	Faculty string
}

// NoteDetail is a note enriched for display.
type NoteDetail struct {
	Note
	DescriptionHTML string `json:"descriptionHtml"`
}

// NoteSummary is a note without its file payload, used in list responses.
type NoteSummary struct {
	Note
	FileData string `json:"fileData,omitempty"`
	HasFile  bool   `json:"hasFile"`
}

// Summarize strips the embedded file content.
func Summarize(n Note) NoteSummary {
	return NoteSummary{Note: n, HasFile: n.HasFile()}
}

// QuarantineReason explains why cleanup removed a note.
type QuarantineReason string

const (
	QuarantineMissingFile   QuarantineReason = "missing_file"
	QuarantineUploadExpired QuarantineReason = "upload_expired"
)

// QuarantinedNote is a note pulled from the live list by cleanup.
type QuarantinedNote struct {
	Note          Note             `json:"note"`
	Reason        QuarantineReason `json:"reason"`
	QuarantinedAt time.Time        `json:"quarantinedAt"`
}

// DownloadLink is a signed, expiring download reference.
type DownloadLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NoteFile is a decoded attachment ready to stream.
type NoteFile struct {
	FileName string
	MimeType string
	Content  []byte
}
