package redis

import (
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/semdesk/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return &Store{client: c}, c
}

// cmdIs matches a command by its name and, optionally, its first argument.
func cmdIs(name string, first ...string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		if len(cmd) == 0 || cmd[0] != name {
			return false
		}
		return len(first) == 0 || (len(cmd) > 1 && cmd[1] == first[0])
	})
}

func wantOp(t *testing.T, err error, op string) {
	t.Helper()
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected *db.Error, got %T: %v", err, err)
	}
	if dbErr.Op != op {
		t.Errorf("op = %q, want %q", dbErr.Op, op)
	}
}
