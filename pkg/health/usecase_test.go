package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/accounts/pkg/health"
	"github.com/artem13815/accounts/pkg/health/checkers"
	"github.com/artem13815/accounts/pkg/storage/sqlite"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}
func (s stubChecker) Check(context.Context) error { return s.err }

func TestReady_ReportsFailingChecker(t *testing.T) {
	boom := errors.New("down")
	svc := health.NewService(stubChecker{}, nil, stubChecker{err: boom})

	err := svc.Ready(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stub")
}

func TestReport_RunsEveryChecker(t *testing.T) {
	dbErr, cacheErr := errors.New("db down"), errors.New("cache down")
	svc := health.NewService(
		stubChecker{name: "postgres", err: dbErr},
		stubChecker{name: "sqlite"},
		stubChecker{name: "redis", err: cacheErr},
	)

	results := svc.Report(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, []string{"postgres", "sqlite", "redis"}, []string{results[0].Name, results[1].Name, results[2].Name})
	assert.NoError(t, results[1].Err)

	err := svc.Ready(context.Background())
	require.ErrorIs(t, err, dbErr)
	require.ErrorIs(t, err, cacheErr)
}

func TestPingChecker_Timeout(t *testing.T) {
	ch := checkers.NewPingChecker("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Equal(t, "slow", ch.Name())
	require.ErrorIs(t, ch.Check(context.Background()), context.DeadlineExceeded)

	def := checkers.NewPingChecker("default", 0, func(context.Context) error { return nil })
	require.NoError(t, def.Check(context.Background()))
}

func TestReady_RealCheckers(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := health.NewService(checkers.NewSQLChecker("sqlite", db), checkers.NewRedisChecker(client))
	require.NoError(t, svc.Ready(ctx))

	mr.Close()
	assert.Error(t, svc.Ready(ctx))
}
