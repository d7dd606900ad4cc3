package model

import "time"

// MarkerDoc 是 mongodb 里的标记文档。
type MarkerDoc struct {
	WorldUID  string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Marker 是 mysql 里的标记行。
type Marker struct {
	WorldUID  string    `gorm:"column:world_uid;primaryKey;size:64"`
	Data      []byte    `gorm:"column:data;type:varbinary(4200)"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Marker) TableName() string {
	return "dimension_marker"
}
