package queue

import (
	"fmt"

	"github.com/hisiddique/bloodathome/config"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Queue names and their relative priorities on the worker.
const (
	QueueNotifications = "notifications"
	QueueMaintenance   = "maintenance"
)

func redisOpt(redisCfg config.RedisConfig, queueCfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port),
		Password: redisCfg.Password,
		DB:       queueCfg.RedisDB,
	}
}

func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(redisCfg, queueCfg))
}

func NewServer(redisCfg config.RedisConfig, queueCfg config.QueueConfig, log *logrus.Logger) *asynq.Server {
	concurrency := queueCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(
		redisOpt(redisCfg, queueCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueNotifications: 6,
				QueueMaintenance:   1,
			},
			Logger: log,
		},
	)
}

func NewScheduler(redisCfg config.RedisConfig, queueCfg config.QueueConfig, log *logrus.Logger) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(redisCfg, queueCfg), &asynq.SchedulerOpts{
		Logger: log,
	})
}
