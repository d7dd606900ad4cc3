package marker

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("dimension marker not found")

// Store 按主世界 UID 存取编码后的标记，不关心内容。
type Store interface {
	Load(ctx context.Context, worldUID string) ([]byte, error)
	Save(ctx context.Context, worldUID string, data []byte) error
}
