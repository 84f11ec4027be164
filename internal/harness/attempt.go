package harness

import (
	"context"
	"errors"

	"github.com/loykin/aegisrun/internal/api"
	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/constants"
	"github.com/loykin/aegisrun/internal/util"
)

// tally counts the outcomes of one stage for its summary line.
type tally struct {
	attempted int
	succeeded int
	failed    int
}

func (t *tally) record(ok bool) {
	t.attempted++
	if ok {
		t.succeeded++
	} else {
		t.failed++
	}
}

func (t tally) attrs() []any {
	return []any{"attempted", t.attempted, "succeeded", t.succeeded, "failed", t.failed}
}

// attempt runs one item and logs its outcome. The item's error never escapes:
// failure of one item must not stop its siblings.
func attempt(ctx context.Context, log *common.Logger, item string, call func(context.Context) (*api.Response, error)) bool {
	l := log.WithItem(item)
	resp, err := call(ctx)
	if err != nil {
		args := []any{"reason", api.Detail(err)}
		var re *api.ResponseError
		if errors.As(err, &re) {
			args = append(args, "status_code", re.Status)
		}
		l.Error("step failed", args...)
		return false
	}
	l.Info("step succeeded", "status_code", resp.Status, "payload", resp.Payload())
	return true
}

// smokeAttempt is attempt plus the response status and headers on failure,
// so an operator can see what the backend answered.
func smokeAttempt(ctx context.Context, log *common.Logger, item string, call func(context.Context) (*api.Response, error)) bool {
	var failed *api.ResponseError
	ok := attempt(ctx, log, item, func(ctx context.Context) (*api.Response, error) {
		resp, err := call(ctx)
		if err != nil {
			_ = errors.As(err, &failed)
		}
		return resp, err
	})
	if !ok && failed != nil {
		log.WithItem(item).Warn("smoke check response",
			"status_code", failed.Status,
			"headers", failed.Header,
			"body", util.Truncate(string(failed.Body), constants.DefaultLogBodyMaxLen))
	}
	return ok
}
