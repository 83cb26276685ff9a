package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"

	// maxAudioUpload bounds multipart attempt uploads
	maxAudioUpload = 25 << 20
)
