package database

import "github.com/yogull/yogull-social-platform-sub001/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Share{},
		&models.DiscussionCategory{},
		&models.Discussion{},
		&models.DiscussionParticipant{},
		&models.DiscussionMessage{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.MediaFile{},
		&models.MediaAttachment{},
		&models.Gallery{},
		&models.GalleryItem{},
		&models.GalleryItemView{},
	}
}
