package uploads

import "time"

// Upload is the metadata record for one stored file. Bytes live on disk
// under the configured upload directory; the database only tracks them.
type Upload struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
