package storage

// Client stores user-uploaded profile pictures and returns their public URL.
type Client interface {
	UploadProfilePicture(userID int64, imageData []byte) (string, error)
}
