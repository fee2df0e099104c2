package jobs

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"freightopt/internal/model"
)

const sweepQueueKey = "sweeps:pending"

// RedisQueue is the multi-process queue: LPUSH on enqueue, BRPOP with a short
// timeout on dequeue so workers keep checking their stop signal.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(url string) (*RedisQueue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisQueue{rdb: redis.NewClient(opt)}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, req model.SweepRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, sweepQueueKey, data).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (model.SweepRequest, bool, error) {
	res, err := q.rdb.BRPop(ctx, time.Second, sweepQueueKey).Result()
	if err == redis.Nil {
		return model.SweepRequest{}, false, nil
	}
	if err != nil {
		return model.SweepRequest{}, false, err
	}
	var req model.SweepRequest
	if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
		return model.SweepRequest{}, false, err
	}
	return req, true, nil
}

func (q *RedisQueue) Close() error { return q.rdb.Close() }
