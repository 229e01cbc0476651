package dto

// RegisterRequest creates a student account.
type RegisterRequest struct {
	FullName        string `json:"fullName" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Faculty         string `json:"faculty" validate:"required"`
	Prodi           string `json:"prodi" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,mixedcase"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest edits the caller's own profile.
type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=3"`
	Faculty  string `json:"faculty" validate:"required"`
	Prodi    string `json:"prodi" validate:"required"`
}
