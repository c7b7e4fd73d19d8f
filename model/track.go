package model

import (
	"time"

	"gorm.io/gorm"
)

// Track represents a stored audio clip.
// StorageKey is written once at creation and never updated.
type Track struct {
	ID         int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string         `json:"name" gorm:"size:64;not null;uniqueIndex:uq_tracks_name"`
	Duration   float64        `json:"duration"` // seconds
	StorageKey string         `json:"-" gorm:"size:255;not null;uniqueIndex:uq_tracks_storage_key"`
	Size       int64          `json:"size"` // bytes of the normalized object
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// FileName is the name offered to clients in Content-Disposition.
func (t *Track) FileName() string {
	return t.Name + ".mp3"
}
