package main

import (
	"context"

	"WorldShift/internal/dimension/infra/persistence/file"
	"WorldShift/internal/dimension/infra/persistence/mongodb"
	"WorldShift/internal/dimension/infra/persistence/mysql"
	"WorldShift/internal/dimension/marker"
	"WorldShift/internal/shared/hostconfig"
	"WorldShift/internal/shared/infrastructure/db"
	"WorldShift/internal/shared/infrastructure/mongo"
	"WorldShift/internal/shared/logs"

	"github.com/spf13/afero"
)

// openMarkerStore 按 marker.backend 选择标记存储，返回关闭函数。
func openMarkerStore(ctx context.Context, conf hostconfig.Config, fsys afero.Fs) (marker.Store, func(), error) {
	switch conf.Marker.Backend {
	case "mongodb":
		client, err := mongo.Open(conf.MongoDB, logs.Logger())
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return mongodb.NewMarkerRepository(client.Database(conf.MongoDB.Database)), closeFn, nil
	case "mysql":
		gdb, err := db.Open(conf.MySQL)
		if err != nil {
			return nil, nil, err
		}
		repo := mysql.NewMarkerRepo(gdb)
		if err := repo.AutoMigrate(ctx); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repo, closeFn, nil
	}
	return file.NewMarkerStore(fsys, conf.Storage.Root), func() {}, nil
}
