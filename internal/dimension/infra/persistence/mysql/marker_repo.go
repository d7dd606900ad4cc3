package mysql

import (
	"context"
	"errors"
	"time"

	"WorldShift/internal/dimension/infra/persistence/model"
	"WorldShift/internal/dimension/marker"
	"WorldShift/modules/kit/errx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MarkerRepo struct {
	db *gorm.DB
}

func NewMarkerRepo(db *gorm.DB) *MarkerRepo {
	return &MarkerRepo{db: db}
}

// AutoMigrate 建表，host 启动时调用一次。
func (r *MarkerRepo) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.Marker{})
}

func (r *MarkerRepo) Load(ctx context.Context, worldUID string) ([]byte, error) {
	var m model.Marker
	err := r.db.WithContext(ctx).Where("world_uid = ?", worldUID).First(&m).Error

	switch {
	case err == nil:
		return m.Data, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, marker.ErrNotFound
	default:
		return nil, errx.ErrStorageUnavailable.WithCause(err).WithData("world_uid", worldUID)
	}
}

func (r *MarkerRepo) Save(ctx context.Context, worldUID string, data []byte) error {
	m := &model.Marker{WorldUID: worldUID, Data: data, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "world_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return errx.ErrStorageUnavailable.WithCause(err).WithData("world_uid", worldUID)
	}
	return nil
}
