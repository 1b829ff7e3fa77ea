package controller

import "errors"

var (
	ErrMissingFields     = errors.New("required fields are empty")
	ErrFacultyIDRequired = errors.New("faculty id is required")
	ErrFacultyIDInvalid  = errors.New("faculty id is not allow-listed")
	ErrProfileMissing    = errors.New("profile not found")
	ErrRoleMismatch      = errors.New("selected role does not match the stored role")
	ErrNotAuthenticated  = errors.New("not signed in")
	ErrAnalysisFailed    = errors.New("analysis failed")
)

const (
	msgFillAllFields      = "Fill all fields"
	msgFacultyIDRequired  = "Faculty ID is required"
	msgFacultyIDInvalid   = "Invalid Faculty ID. Please contact your administrator."
	msgSignupSuccessful   = "Signup successful!"
	msgUserDataNotFound   = "User data not found"
	msgRoleMismatchFormat = "You signed up as %s, not %s"
	msgLoggedOut          = "Logged out successfully"
	msgNoticePosted       = "Notice posted successfully!"
	msgErrorPrefix        = "Error: "
	msgPostErrorPrefix    = "Error posting notice: "
)
