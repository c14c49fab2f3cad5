package storage

import (
	"github.com/better-rail/server/storage/redis"
)

//统一 init storage 层，目前只有 redis

func Init() error {
	if err := redis.Init(); err != nil {
		return err
	}

	return nil
}
