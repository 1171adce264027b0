package dto

import "time"

// ReplayUploadRequestDTO initiates a gameplay replay upload.
type ReplayUploadRequestDTO struct {
	Filename string `json:"filename" validate:"required,min=1,max=255"`
}

// ReplayUploadResponseDTO carries the presigned URL for direct upload.
type ReplayUploadResponseDTO struct {
	ID        string `json:"id"`
	UploadURL string `json:"upload_url"`
	Status    string `json:"status"`
}

// ReplayResponseDTO is a replay record.
type ReplayResponseDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
