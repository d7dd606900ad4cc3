package marker

import (
	"context"
	"errors"

	"WorldShift/internal/dimension/entity"
	"WorldShift/modules/kit/logx"

	"go.uber.org/zap"
)

// Resolver 是名字索引，读标记时只按名字解析。
type Resolver interface {
	ByName(fullName string) (*entity.Descriptor, bool)
}

// Service 负责标记的读写。写失败只记日志，读失败当作没有记录。
type Service struct {
	store    Store
	resolver Resolver
	log      logx.Logger
}

func NewService(store Store, resolver Resolver, l logx.Logger) *Service {
	return &Service{store: store, resolver: resolver, log: logx.OrNop(l)}
}

// Write 记下当前所在维度。
func (s *Service) Write(ctx context.Context, worldUID string, d *entity.Descriptor) {
	if d == nil {
		s.Clear(ctx, worldUID)
		return
	}
	s.save(ctx, worldUID, Record{Version: FormatVersion, AdvisoryIndex: int32(d.ID), FullName: d.FullName})
}

// Clear 写入空名字，表示回到了主世界。
func (s *Service) Clear(ctx context.Context, worldUID string) {
	s.save(ctx, worldUID, Record{Version: FormatVersion, AdvisoryIndex: int32(entity.TargetPrimary)})
}

func (s *Service) save(ctx context.Context, worldUID string, r Record) {
	if err := s.store.Save(ctx, worldUID, r.Encode()); err != nil {
		logx.ReportSysErrorWithLoggerContext(ctx, s.log, logx.NewSysLog("marker.write", err),
			zap.String("world_uid", worldUID), zap.String("dimension", r.FullName))
	}
}

// Read 返回标记指向的、仍然注册着的维度。
func (s *Service) Read(ctx context.Context, worldUID string) (*entity.Descriptor, bool) {
	raw, err := s.store.Load(ctx, worldUID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithContext(ctx).Warn("marker load failed, treat as no saved state",
				zap.String("world_uid", worldUID), zap.Error(err))
		}
		return nil, false
	}
	r, err := Decode(raw)
	if err != nil {
		s.log.WithContext(ctx).Warn("marker corrupt, treat as no saved state",
			zap.String("world_uid", worldUID), zap.Error(err))
		return nil, false
	}
	if r.FullName == "" {
		return nil, false
	}
	d, ok := s.resolver.ByName(r.FullName)
	if !ok {
		s.log.WithContext(ctx).Warn("marker names an unregistered dimension",
			zap.String("world_uid", worldUID), zap.String("dimension", r.FullName),
			zap.Int32("advisory_index", r.AdvisoryIndex))
		return nil, false
	}
	return d, true
}
