package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	errs    []error
	tags    []map[string]string
	flushed time.Duration
	panics  []any
}

func (r *recorder) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recorder) Recover(v any)         { r.panics = append(r.panics, v) }
func (r *recorder) Flush(d time.Duration) { r.flushed = d }

func TestCaptureUsesInstalledMonitor(t *testing.T) {
	r := &recorder{}
	Init(r)
	t.Cleanup(func() { Init(nil) })

	CaptureException(errors.New("window 2 infeasible"), map[string]string{"window": "2"})
	CaptureException(nil, nil)
	Flush(time.Second)

	assert.Len(t, r.errs, 1)
	assert.Equal(t, "2", r.tags[0]["window"])
	assert.Equal(t, time.Second, r.flushed)
}

func TestInitNilRestoresNop(t *testing.T) {
	Init(nil)
	assert.IsType(t, NopMonitor{}, get())
	assert.NotPanics(t, func() { CaptureException(errors.New("x"), nil) })
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	r := &recorder{}
	Init(r)
	t.Cleanup(func() { Init(nil) })

	assert.PanicsWithValue(t, "boom", func() {
		defer Recover()
		panic("boom")
	})
	assert.Equal(t, []any{"boom"}, r.panics)
	assert.NotPanics(t, func() {
		defer Recover()
	})
	assert.Len(t, r.panics, 1)
}
