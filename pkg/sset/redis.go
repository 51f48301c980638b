package sset

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/ohler55/ojg/oj"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// redisService is the Redis-backed realization of Service. redis.UniversalClient
// is satisfied by both *redis.Client and *redis.ClusterClient, so the same
// service code drives single-node and cluster deployments.
type redisService struct {
	rdb redis.UniversalClient
	log logr.Logger
}

// NewRedisService dials a Redis backend according to the parsed URL and
// returns a Service realized on top of it. A "redis-cluster://" URL yields
// a cluster client; anything else yields a single-node client.
func NewRedisService(parsed BackendURL, log logr.Logger) (Service, error) {
	if parsed.Cluster {
		return newRedisClusterService(parsed, log)
	}
	return newRedisSingleService(parsed, log)
}

func newRedisSingleService(parsed BackendURL, log logr.Logger) (Service, error) {
	opts, err := redis.ParseURL(parsed.Nodes[0])
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL %q: %w", parsed.Nodes[0], err)
	}
	return &redisService{rdb: redis.NewClient(opts), log: log.WithName("sset-redis")}, nil
}

func newRedisClusterService(parsed BackendURL, log logr.Logger) (Service, error) {
	opts := &redis.ClusterOptions{Addrs: parsed.Nodes}
	if len(parsed.AddrMap) > 0 {
		remap := parsed.AddrMap
		opts.NewClient = func(o *redis.Options) *redis.Client {
			if mapped, ok := remap[o.Addr]; ok {
				o.Addr = mapped
			}
			return redis.NewClient(o)
		}
	}
	return &redisService{rdb: redis.NewClusterClient(opts), log: log.WithName("sset-redis-cluster")}, nil
}

// Process groups ops by database and commits each group as one atomic
// transaction pipeline, running the per-database groups in parallel.
func (s *redisService) Process(ctx context.Context, ops []Operation) error {
	groups, order, err := groupByDatabase(ops)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, database := range order {
		groupOps := groups[database]
		g.Go(func() error {
			return s.commitGroup(ctx, groupOps)
		})
	}
	if err := g.Wait(); err != nil {
		return NewBackendError("process", err)
	}
	return nil
}

func groupByDatabase(ops []Operation) (map[string][]Operation, []string, error) {
	groups := make(map[string][]Operation)
	order := []string{}
	for _, op := range ops {
		if len(op.IDPath) == 0 {
			return nil, nil, NewInvalidOperationError("id-path must be non-empty")
		}
		if !op.Keep.Valid() {
			return nil, nil, NewInvalidOperationError(fmt.Sprintf("unrecognized keep %q", op.Keep))
		}
		if _, ok := groups[op.Database]; !ok {
			order = append(order, op.Database)
		}
		groups[op.Database] = append(groups[op.Database], op)
	}
	return groups, order, nil
}

func (s *redisService) commitGroup(ctx context.Context, ops []Operation) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			key, err := BuildKey(op.Database, op.IDPath)
			if err != nil {
				return err
			}
			encoded, err := encodeValue(op.Value)
			if err != nil {
				return err
			}

			switch op.Keep {
			case AllValues:
				pipe.ZAddGT(ctx, key, redis.Z{Score: op.Score, Member: encoded})
			case LastValue:
				pipe.ZAddGT(ctx, key, redis.Z{Score: op.Score, Member: encoded})
				pipe.ZRemRangeByRank(ctx, key, 0, -2)
			}
		}
		return nil
	})
	return err
}

func encodeValue(v any) (string, error) {
	return oj.JSON(v, &oj.Options{Sort: true}), nil
}

func decodeValue(s string) (any, error) {
	return oj.ParseString(s)
}

// RangeByIndex returns a range response where query.Min/Max are interpreted
// as inclusive rank indices (negative from the end).
func (s *redisService) RangeByIndex(ctx context.Context, database string, idPath []string, query RangeQuery) (RangeResponse, error) {
	key, err := BuildKey(database, idPath)
	if err != nil {
		return RangeResponse{}, err
	}

	desc := query.Order == Desc
	start, stop := int64(query.Min), int64(query.Max)

	var rows []Row
	var total int = -1

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.fetchByRank(gctx, key, start, stop, desc, query.IncludeScores)
		return err
	})
	if query.IncludeTotal && query.HasPaging {
		g.Go(func() error {
			n, err := s.rdb.ZCard(gctx, key).Result()
			if err != nil {
				return err
			}
			total = int(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RangeResponse{}, NewBackendError("rangeByIndex", err)
	}

	if !query.IncludeTotal {
		total = -1
	} else if !query.HasPaging {
		// With no paging window, the query already returned every
		// matching row, so the row count is the total: no extra call.
		total = len(rows)
	}
	paging := Paging{Offset: 0, Count: -1, Total: total}
	if query.HasPaging {
		paging.Offset = query.Offset
		paging.Count = len(rows)
	}
	return RangeResponse{Paging: paging, Rows: rows}, nil
}

func (s *redisService) fetchByRank(ctx context.Context, key string, start, stop int64, desc, withScores bool) ([]Row, error) {
	if withScores {
		var zs []redis.Z
		var err error
		if desc {
			zs, err = s.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
		} else {
			zs, err = s.rdb.ZRangeWithScores(ctx, key, start, stop).Result()
		}
		if err != nil {
			return nil, err
		}
		return decodeZs(zs)
	}

	var members []string
	var err error
	if desc {
		members, err = s.rdb.ZRevRange(ctx, key, start, stop).Result()
	} else {
		members, err = s.rdb.ZRange(ctx, key, start, stop).Result()
	}
	if err != nil {
		return nil, err
	}
	return decodeMembers(members)
}

// RangeByScore returns a range response where query.Min/Max are interpreted
// as inclusive score bounds.
func (s *redisService) RangeByScore(ctx context.Context, database string, idPath []string, query RangeQuery) (RangeResponse, error) {
	key, err := BuildKey(database, idPath)
	if err != nil {
		return RangeResponse{}, err
	}

	desc := query.Order == Desc

	// ZRangeBy.Min/Max are always the ascending score bounds: go-redis
	// reorders them into "max min" on the wire for the Rev variants, so
	// the caller must never pre-swap them.
	limit := &redis.ZRangeBy{
		Min: formatScore(query.Min),
		Max: formatScore(query.Max),
	}
	if query.HasPaging {
		offset := query.Offset
		count := query.Count
		if count <= 0 {
			count = math.MaxInt32
		}
		limit.Offset = int64(offset)
		limit.Count = int64(count)
	}

	var rows []Row
	var total int = -1

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.fetchByScore(gctx, key, limit, desc, query.IncludeScores)
		return err
	})
	if query.IncludeTotal && query.HasPaging {
		g.Go(func() error {
			n, err := s.rdb.ZCount(gctx, key, formatScore(query.Min), formatScore(query.Max)).Result()
			if err != nil {
				return err
			}
			total = int(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RangeResponse{}, NewBackendError("rangeByScore", err)
	}

	if !query.IncludeTotal {
		total = -1
	} else if !query.HasPaging {
		total = len(rows)
	}
	paging := Paging{Offset: 0, Count: -1, Total: total}
	if query.HasPaging {
		paging.Offset = query.Offset
		paging.Count = len(rows)
	}
	return RangeResponse{Paging: paging, Rows: rows}, nil
}

func (s *redisService) fetchByScore(ctx context.Context, key string, limit *redis.ZRangeBy, desc, withScores bool) ([]Row, error) {
	if withScores {
		var zs []redis.Z
		var err error
		if desc {
			zs, err = s.rdb.ZRevRangeByScoreWithScores(ctx, key, limit).Result()
		} else {
			zs, err = s.rdb.ZRangeByScoreWithScores(ctx, key, limit).Result()
		}
		if err != nil {
			return nil, err
		}
		return decodeZs(zs)
	}

	var members []string
	var err error
	if desc {
		members, err = s.rdb.ZRevRangeByScore(ctx, key, limit).Result()
	} else {
		members, err = s.rdb.ZRangeByScore(ctx, key, limit).Result()
	}
	if err != nil {
		return nil, err
	}
	return decodeMembers(members)
}

func formatScore(v float64) string {
	return oj.JSON(v, nil)
}

func decodeZs(zs []redis.Z) ([]Row, error) {
	rows := make([]Row, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected non-string member %#v", z.Member)
		}
		v, err := decodeValue(member)
		if err != nil {
			return nil, fmt.Errorf("decoding stored value %q: %w", member, err)
		}
		rows = append(rows, Row{Value: v, Score: z.Score, HasScore: true})
	}
	return rows, nil
}

func decodeMembers(members []string) ([]Row, error) {
	rows := make([]Row, 0, len(members))
	for _, m := range members {
		v, err := decodeValue(m)
		if err != nil {
			return nil, fmt.Errorf("decoding stored value %q: %w", m, err)
		}
		rows = append(rows, Row{Value: v})
	}
	return rows, nil
}
