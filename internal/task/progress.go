package task

import "context"

type progressKey struct{}

type progressFunc func(pct float64)

func withProgress(ctx context.Context, fn progressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress records incremental progress, in percent, for the task whose
// work function received ctx. Values lower than the current progress are
// ignored and a running task never reports more than 99; the record moves to
// 100 when the work function returns successfully. Outside a task it does
// nothing.
func ReportProgress(ctx context.Context, pct float64) {
	if fn, ok := ctx.Value(progressKey{}).(progressFunc); ok {
		fn(pct)
	}
}
