package daemon

import (
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
)

func seed(_ *config.Config, db *gorm.DB) {
	// Seed initial data if user table is empty

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		// Create the first super-user; the password must be changed on
		// first sign-in.

		db.Create(
			&models.User{
				Username:   "admin",
				Email:      "admin@localhost",
				Password:   models.HashPassword("changeme"),
				Active:     true,
				SuperUser:  true,
				AuthSource: models.AuthSourceLocal,
			},
		)
	}
}
