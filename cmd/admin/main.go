// Command admin manages community accounts from the command line.
package main

import (
	"os"

	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/database"

	"gorm.io/gorm"
)

func main() {
	root := newRootCmd(loadEnvironment)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEnvironment() (*config.Config, *gorm.DB, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, func() { _ = database.Close(db) }, nil
}
