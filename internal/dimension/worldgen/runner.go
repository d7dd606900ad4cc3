package worldgen

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"WorldShift/internal/dimension/entity"
	"WorldShift/modules/kit/errx"
	"WorldShift/modules/kit/logx"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

var ErrGenerationFailed = errx.NewSys(errx.CodeGenerationFailed, "world generation failed")

// Runner 按顺序执行描述里的 pass，每个 pass 开始前都用同一个基础种子重置随机源。
type Runner struct {
	log    logx.Logger
	status map[string]string
}

// NewRunner 的 status 是 pass 名到状态文案的映射，缺省时用 pass 名。
func NewRunner(l logx.Logger, status map[string]string) *Runner {
	return &Runner{log: logx.OrNop(l), status: status}
}

func (r *Runner) StatusFor(pass string) string {
	if s, ok := r.status[pass]; ok && s != "" {
		return s
	}
	return pass
}

// Run 执行全部 pass。pass 返回错误或 panic 时中止并返回 ErrGenerationFailed。
func (r *Runner) Run(ctx context.Context, d *entity.Descriptor, seed int64, p *Progress) error {
	total := d.TotalWeight()
	if total <= 0 {
		return ErrGenerationFailed.WithReason("total pass weight is zero").WithData("dimension", d.FullName)
	}

	p.Reset()
	var done float64
	for i, pass := range d.Passes {
		begin := time.Now()
		p.reseed(seed)
		p.window(done/total, pass.Weight/total)
		p.SetMessage(r.StatusFor(pass.Name))

		if err := r.apply(pass, p, d.GenerationConfig.For(pass.Name)); err != nil {
			return ErrGenerationFailed.WithCause(err).
				WithData("dimension", d.FullName).
				WithData("pass", pass.Name).
				WithData("index", i)
		}

		done += pass.Weight
		p.window(done/total, 0)
		p.publish(done / total)
		r.log.WithContext(ctx).Debug("generation pass done",
			zap.String("dimension", d.FullName),
			zap.String("pass", pass.Name),
			zap.Float64("progress", p.Value()),
			zap.Duration("elapsed", time.Since(begin)))
	}
	return nil
}

func (r *Runner) apply(pass entity.Pass, p *Progress, cfg entity.PassConfig) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pass %s panic: %v", pass.Name, rec)
		}
	}()
	return pass.Apply(p, cfg)
}

// DeriveSeed 由主世界种子和维度全名得到稳定的维度种子。
func DeriveSeed(primarySeed int64, fullName string) int64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(primarySeed))
	_, _ = h.Write(buf[:])
	_, _ = h.WriteString(fullName)
	return int64(h.Sum64())
}
